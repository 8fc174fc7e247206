package build

// Action is one fully resolved provisioning step. The resolver emits
// actions in strict document order; the executor depends on that order (a
// manager is always bootstrapped before a package naming it).
type Action interface {
	isAction()
}

// EnsureRepo makes the declared repository present at Path, cloning from
// URL when missing.
type EnsureRepo struct {
	Path string
	URL  string
}

// CreateLink creates the symlink Source pointing at Target.
type CreateLink struct {
	Source string
	Target string
}

// RunHook runs Command under Shell during the lifecycle phases listed in On.
type RunHook struct {
	Shell   string
	Command string
	On      []Lifecycle
}

// BootstrapManager makes a package manager available, carrying its full
// declaration so the executor can later render its install and uninstall
// commands.
type BootstrapManager struct {
	Manager Manager
}

// InstallPackage installs one package through one selected manager. Alias
// is the effective package name under that manager (the per-manager alias
// when declared, else Name).
type InstallPackage struct {
	Name    string
	Manager string
	Alias   string
}

func (EnsureRepo) isAction()       {}
func (CreateLink) isAction()       {}
func (RunHook) isAction()          {}
func (BootstrapManager) isAction() {}
func (InstallPackage) isAction()   {}
