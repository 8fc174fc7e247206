package resolver

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/vk/dotplan/internal/build"
	"github.com/vk/dotplan/internal/platform"
)

var testDescriptor = platform.Descriptor{
	Platform: "macos",
	Distro:   "",
	Hostname: "workstation",
	Arch:     "arm64",
}

func resolve(t *testing.T, nodes ...build.Node) (*Result, error) {
	t.Helper()
	r := New(testDescriptor, "/home/user")
	return r.Resolve(context.Background(), &build.Document{Nodes: nodes})
}

func mustResolve(t *testing.T, nodes ...build.Node) *Result {
	t.Helper()
	result, err := resolve(t, nodes...)
	require.NoError(t, err)
	return result
}

func namespace(name string, bindings ...build.Binding) build.Namespace {
	return build.Namespace{Name: name, Values: bindings}
}

func TestResolve_EmptyDocument(t *testing.T) {
	t.Parallel()
	result := mustResolve(t)
	require.Empty(t, result.Actions)
	require.Empty(t, result.Warnings)
}

func TestResolve_LinkRendersNamespaceBindings(t *testing.T) {
	t.Parallel()
	result := mustResolve(t,
		namespace("paths", build.Binding{Name: "config", Value: "~/.config"}),
		build.Link{Source: "${{ paths.config }}/nvim", Target: "~/nvim"},
	)
	require.Equal(t, []build.Action{
		build.CreateLink{Source: "/home/user/.config/nvim", Target: "/home/user/nvim"},
	}, result.Actions)
}

func TestResolve_NamespaceValuesMayReferenceEarlierBindings(t *testing.T) {
	t.Parallel()
	result := mustResolve(t,
		namespace("paths",
			build.Binding{Name: "base", Value: "~/cfg"},
			build.Binding{Name: "nvim", Value: "${{ paths.base }}/nvim"},
		),
		build.Hook{Command: "ls ${{ paths.nvim }}", On: []build.Lifecycle{build.LifecycleInstall}},
	)
	hook := result.Actions[0].(build.RunHook)
	require.Equal(t, "ls /home/user/cfg/nvim", hook.Command)
}

func TestResolve_UnresolvedVariableAbortsWithNoPartialResult(t *testing.T) {
	t.Parallel()
	result, err := resolve(t,
		build.Link{Source: "a", Target: "b"},
		build.Hook{Command: "${{ missing.var }}"},
	)
	require.Nil(t, result)
	require.ErrorIs(t, err, ErrUnresolvedVariable)

	var resolveErr *Error
	require.ErrorAs(t, err, &resolveErr)
	require.Equal(t, "hook", resolveErr.Node)
	require.Equal(t, "command", resolveErr.Field)
}

func TestResolve_CaseSelectsFirstMatchingBranch(t *testing.T) {
	t.Parallel()
	result := mustResolve(t, build.Case{Branches: []build.CaseBranch{
		{
			Condition: platform.Condition{"platform": "linux"},
			Children:  []build.Node{build.Hook{Command: "linux"}},
		},
		{
			Condition: platform.Condition{"platform": "macos"},
			Children:  []build.Node{build.Hook{Command: "macos first"}},
		},
		{
			Condition: platform.Condition{"platform": "macos", "arch": "arm64"},
			Children:  []build.Node{build.Hook{Command: "macos second"}},
		},
	}})
	require.Len(t, result.Actions, 1)
	require.Equal(t, "macos first", result.Actions[0].(build.RunHook).Command)
}

func TestResolve_CaseFallsBackToDefault(t *testing.T) {
	t.Parallel()
	result := mustResolve(t, build.Case{Branches: []build.CaseBranch{
		{
			Condition: platform.Condition{"platform": "windows"},
			Children:  []build.Node{build.Hook{Command: "windows"}},
		},
		{
			Children: []build.Node{build.Hook{Command: "fallback"}},
		},
	}})
	require.Len(t, result.Actions, 1)
	require.Equal(t, "fallback", result.Actions[0].(build.RunHook).Command)
}

func TestResolve_CaseWithoutMatchOrDefaultFails(t *testing.T) {
	t.Parallel()
	_, err := resolve(t, build.Case{Branches: []build.CaseBranch{
		{Condition: platform.Condition{"platform": "windows"}},
	}})
	require.ErrorIs(t, err, ErrNoMatchingBranch)
}

func TestResolve_EmptyCaseFails(t *testing.T) {
	t.Parallel()
	_, err := resolve(t, build.Case{})
	require.ErrorIs(t, err, ErrEmptyCase)
}

func TestResolve_MalformedConditionFails(t *testing.T) {
	t.Parallel()
	_, err := resolve(t, build.Case{Branches: []build.CaseBranch{
		{Condition: platform.Condition{"flavour": "salty"}},
	}})
	require.ErrorIs(t, err, ErrMalformedCondition)
}

func TestResolve_CaseBranchScopeDoesNotLeak(t *testing.T) {
	t.Parallel()
	_, err := resolve(t,
		build.Case{Branches: []build.CaseBranch{{
			Condition: platform.Condition{},
			Children: []build.Node{
				namespace("inner", build.Binding{Name: "x", Value: "1"}),
			},
		}}},
		build.Hook{Command: "${{ inner.x }}"},
	)
	require.ErrorIs(t, err, ErrUnresolvedVariable)
}

func TestResolve_MatrixExpandsInRowOrder(t *testing.T) {
	t.Parallel()
	result := mustResolve(t, build.Matrix{
		Columns: []build.MatrixColumn{
			{Name: "name", Items: []string{"a", "b", "c"}},
		},
		Children: []build.Node{build.Hook{Command: "touch ${{ matrix.name }}"}},
	})
	var commands []string
	for _, action := range result.Actions {
		commands = append(commands, action.(build.RunHook).Command)
	}
	require.Equal(t, []string{"touch a", "touch b", "touch c"}, commands)
}

func TestResolve_NestedMatricesComposeRowMajor(t *testing.T) {
	t.Parallel()
	result := mustResolve(t, build.Matrix{
		Columns: []build.MatrixColumn{{Name: "outer", Items: []string{"1", "2"}}},
		Children: []build.Node{build.Matrix{
			Columns: []build.MatrixColumn{
				// Inner rows may reference the outer row's binding.
				{Name: "inner", Items: []string{"${{ matrix.outer }}a", "${{ matrix.outer }}b"}},
			},
			Children: []build.Node{build.Hook{Command: "${{ matrix.inner }}"}},
		}},
	})
	var commands []string
	for _, action := range result.Actions {
		commands = append(commands, action.(build.RunHook).Command)
	}
	require.Equal(t, []string{"1a", "1b", "2a", "2b"}, commands)
}

func TestResolve_MatrixWithZeroRowsYieldsNothing(t *testing.T) {
	t.Parallel()
	result := mustResolve(t, build.Matrix{
		Children: []build.Node{build.Hook{Command: "never"}},
	})
	require.Empty(t, result.Actions)

	result = mustResolve(t, build.Matrix{
		Columns:  []build.MatrixColumn{{Name: "name", Items: nil}},
		Children: []build.Node{build.Hook{Command: "never"}},
	})
	require.Empty(t, result.Actions)
}

func TestResolve_MatrixShapeMismatchFails(t *testing.T) {
	t.Parallel()
	_, err := resolve(t, build.Matrix{
		Columns: []build.MatrixColumn{
			{Name: "a", Items: []string{"1", "2", "3"}},
			{Name: "b", Items: []string{"4", "5", "6", "7"}},
		},
	})
	require.ErrorIs(t, err, ErrMatrixShape)
}

func TestResolve_MatrixBindingShadowsOuterMatrix(t *testing.T) {
	t.Parallel()
	result := mustResolve(t, build.Matrix{
		Columns: []build.MatrixColumn{{Name: "name", Items: []string{"outer"}}},
		Children: []build.Node{
			build.Matrix{
				Columns:  []build.MatrixColumn{{Name: "name", Items: []string{"inner"}}},
				Children: []build.Node{build.Hook{Command: "${{ matrix.name }}"}},
			},
			build.Hook{Command: "${{ matrix.name }}"},
		},
	})
	var commands []string
	for _, action := range result.Actions {
		commands = append(commands, action.(build.RunHook).Command)
	}
	require.Equal(t, []string{"inner", "outer"}, commands)
}

func TestResolve_RepositoryBindsBuiltins(t *testing.T) {
	t.Parallel()
	result := mustResolve(t,
		build.Repository{Path: "~/dotfiles", URL: "https://example.com/dotfiles.git"},
		build.Link{Source: "~/.zshrc", Target: "${{ repo.path }}/.zshrc"},
		build.Hook{Command: "git -C ${{ dotfiles.path }} pull"},
	)
	require.Equal(t, []build.Action{
		build.EnsureRepo{Path: "/home/user/dotfiles", URL: "https://example.com/dotfiles.git"},
		build.CreateLink{Source: "/home/user/.zshrc", Target: "/home/user/dotfiles/.zshrc"},
		build.RunHook{Command: "git -C /home/user/dotfiles pull"},
	}, result.Actions)
}

func TestResolve_RepoBuiltinUnboundBeforeRepositoryNode(t *testing.T) {
	t.Parallel()
	_, err := resolve(t, build.Link{Source: "a", Target: "${{ repo.path }}/b"})
	require.ErrorIs(t, err, ErrUnresolvedVariable)
}

func TestResolve_RepositoryRedeclaration(t *testing.T) {
	t.Parallel()

	repo := build.Repository{Path: "~/dotfiles", URL: "https://example.com/d.git"}
	result := mustResolve(t, repo, repo)
	require.Len(t, result.Actions, 1)

	_, err := resolve(t, repo, build.Repository{Path: "~/other", URL: "https://example.com/d.git"})
	require.ErrorIs(t, err, ErrRepoConflict)
}

func TestResolve_ManagerSelectionFollowsDeclarationOrder(t *testing.T) {
	t.Parallel()
	result := mustResolve(t,
		build.Manager{Name: "brew", Install: "brew install ${{ package.alias }}"},
		build.Manager{Name: "cargo", Install: "cargo install ${{ package.alias }}"},
		build.Package{Name: "ripgrep"},
	)
	require.Equal(t, build.InstallPackage{
		Name: "ripgrep", Manager: "brew", Alias: "ripgrep",
	}, result.Actions[2])
}

func TestResolve_PackageRestrictionFiltersManagers(t *testing.T) {
	t.Parallel()
	result := mustResolve(t,
		build.Manager{Name: "brew"},
		build.Manager{Name: "cargo"},
		build.Package{Name: "bat", Managers: []string{"cargo"}},
	)
	require.Equal(t, build.InstallPackage{
		Name: "bat", Manager: "cargo", Alias: "bat",
	}, result.Actions[2])
}

func TestResolve_DuplicateManagerIsIdempotent(t *testing.T) {
	t.Parallel()
	result := mustResolve(t,
		build.Manager{Name: "brew", Install: "first"},
		build.Manager{Name: "brew", Install: "second"},
	)
	require.Len(t, result.Actions, 1)
	require.Equal(t, "first", result.Actions[0].(build.BootstrapManager).Manager.Install)
}

// Scenario: a case choosing choco on windows and brew everywhere else, on a
// macos descriptor, bootstraps exactly brew.
func TestResolve_PlatformSelectsManager(t *testing.T) {
	t.Parallel()
	result := mustResolve(t, build.Case{Branches: []build.CaseBranch{
		{
			Condition: platform.Condition{"platform": "windows"},
			Children:  []build.Node{build.Manager{Name: "choco"}},
		},
		{
			Children: []build.Node{build.Manager{Name: "brew"}},
		},
	}})
	require.Equal(t, []build.Action{
		build.BootstrapManager{Manager: build.Manager{Name: "brew"}},
	}, result.Actions)
}

func TestResolve_PackageAliasPerManager(t *testing.T) {
	t.Parallel()
	result := mustResolve(t,
		build.Manager{Name: "brew"},
		build.Package{Name: "delta", Aliases: map[string]string{"brew": "git-delta"}},
	)
	require.Equal(t, build.InstallPackage{
		Name: "delta", Manager: "brew", Alias: "git-delta",
	}, result.Actions[1])
}

func TestResolve_PackageWithNoEligibleManagerIsSkipped(t *testing.T) {
	t.Parallel()
	result := mustResolve(t,
		build.Manager{Name: "brew"},
		build.Package{Name: "winget-only", Managers: []string{"apt", "choco"}},
	)
	for _, action := range result.Actions {
		_, isInstall := action.(build.InstallPackage)
		require.False(t, isInstall)
	}
	require.Len(t, result.Warnings, 1)
	require.Equal(t, "winget-only", result.Warnings[0].Package)
}

func TestResolve_PackageBeforeAnyManagerIsSkipped(t *testing.T) {
	t.Parallel()
	result := mustResolve(t, build.Package{Name: "early"})
	require.Empty(t, result.Actions)
	require.Len(t, result.Warnings, 1)
}

func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()
	nodes := []build.Node{
		build.Repository{Path: "~/dotfiles", URL: "u"},
		namespace("ns", build.Binding{Name: "a", Value: "1"}),
		build.Manager{Name: "brew"},
		build.Manager{Name: "apt"},
		build.Matrix{
			Columns: []build.MatrixColumn{{Name: "pkg", Items: []string{"x", "y"}}},
			Children: []build.Node{
				build.Package{Name: "${{ matrix.pkg }}", Aliases: map[string]string{"brew": "b"}},
			},
		},
		build.Link{Source: "${{ ns.a }}", Target: "${{ repo.path }}"},
	}

	first := mustResolve(t, nodes...)
	second := mustResolve(t, nodes...)
	require.Empty(t, cmp.Diff(first.Actions, second.Actions))
	require.Empty(t, cmp.Diff(first.Warnings, second.Warnings))
}

func TestResolve_ActionOrderIsDocumentOrder(t *testing.T) {
	t.Parallel()
	result := mustResolve(t,
		build.Manager{Name: "brew"},
		build.Hook{Command: "pre"},
		build.Package{Name: "jq"},
		build.Hook{Command: "post"},
	)
	require.Equal(t, []build.Action{
		build.BootstrapManager{Manager: build.Manager{Name: "brew"}},
		build.RunHook{Command: "pre"},
		build.InstallPackage{Name: "jq", Manager: "brew", Alias: "jq"},
		build.RunHook{Command: "post"},
	}, result.Actions)
}
