package resolver_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/stager/pkg/errors"
	"github.com/arthur-debert/stager/pkg/resolver"
	"github.com/arthur-debert/stager/pkg/testutil"
	"github.com/arthur-debert/stager/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relPaths(entries []types.ResolvedEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.RelativePath
	}
	return out
}

func targets(entries []types.ResolvedEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.TargetPath
	}
	return out
}

func TestResolver_Resolve(t *testing.T) {
	t.Run("include_and_exclude", func(t *testing.T) {
		env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
		src := env.SetupSource("app", map[string]string{
			"a.md":             "a",
			"sub/b.md":         "b",
			"sub/draft-c.md":   "c",
			"sub/c.txt":        "c",
			"deep/x/y/z.md":    "z",
			"deep/x/notes.txt": "n",
		})

		r := resolver.New(env.FS)
		entries, err := r.Resolve(types.Rule{
			Name:           "docs",
			SourceRoot:     src,
			Include:        []string{"**/*.md"},
			Exclude:        []string{"**/draft-*"},
			TargetTemplate: "docs/{relative_path}",
		})
		require.NoError(t, err)

		assert.Equal(t, []string{"a.md", "deep/x/y/z.md", "sub/b.md"}, relPaths(entries))
		assert.Equal(t, []string{"docs/a.md", "docs/deep/x/y/z.md", "docs/sub/b.md"}, targets(entries))
		assert.Equal(t, filepath.Join(src, "sub", "b.md"), entries[2].SourcePath)
		for _, e := range entries {
			assert.Equal(t, types.ModeCopy, e.Mode)
		}
	})

	t.Run("empty_include_matches_everything", func(t *testing.T) {
		env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
		src := env.SetupSource("", map[string]string{
			"b.txt":   "b",
			"a/c.txt": "c",
		})

		entries, err := resolver.New(env.FS).Resolve(types.Rule{SourceRoot: src, TargetTemplate: "out/"})
		require.NoError(t, err)
		assert.Equal(t, []string{"a/c.txt", "b.txt"}, relPaths(entries))
		assert.Equal(t, []string{"out/a/c.txt", "out/b.txt"}, targets(entries))
	})

	t.Run("carries_mode_and_permissions", func(t *testing.T) {
		env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
		src := env.SetupSource("", map[string]string{"run.sh": "#!/bin/sh"})

		entries, err := resolver.New(env.FS).Resolve(types.Rule{
			SourceRoot:     src,
			Include:        []string{"*.sh"},
			TargetTemplate: "bin/{stem}",
			Mode:           types.ModeSymlink,
			Permissions:    types.Perm(0755),
		})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "bin/run", entries[0].TargetPath)
		assert.Equal(t, types.ModeSymlink, entries[0].Mode)
		require.NotNil(t, entries[0].Permissions)
		assert.Equal(t, os.FileMode(0755), *entries[0].Permissions)
	})

	t.Run("invalid_pattern_fails_before_walking", func(t *testing.T) {
		env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)

		_, err := resolver.New(env.FS).Resolve(types.Rule{
			SourceRoot: env.Path("does-not-exist"),
			Include:    []string{"[abc"},
		})
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidPattern))
	})

	t.Run("invalid_exclude_pattern", func(t *testing.T) {
		env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
		src := env.SetupSource("", map[string]string{"a": "a"})

		_, err := resolver.New(env.FS).Resolve(types.Rule{
			SourceRoot: src,
			Exclude:    []string{"{a,b"},
		})
		assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidPattern))
	})

	t.Run("missing_source_root", func(t *testing.T) {
		env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)

		_, err := resolver.New(env.FS).Resolve(types.Rule{
			Name:       "gone",
			SourceRoot: env.Path("nope"),
		})
		require.Error(t, err)
		assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
		assert.Equal(t, "gone", errors.GetErrorDetails(err)["rule"])
	})

	t.Run("missing_optional_source_root", func(t *testing.T) {
		env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)

		entries, err := resolver.New(env.FS).Resolve(types.Rule{
			SourceRoot: env.Path("nope"),
			Optional:   true,
		})
		require.NoError(t, err)
		assert.Empty(t, entries)
	})

	t.Run("source_root_is_a_file", func(t *testing.T) {
		env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
		src := env.SetupSource("", map[string]string{"file": "x"})

		_, err := resolver.New(env.FS).Resolve(types.Rule{SourceRoot: filepath.Join(src, "file")})
		assert.True(t, errors.IsErrorCode(err, errors.ErrNotADirectory))
	})

	t.Run("no_match_is_an_error", func(t *testing.T) {
		env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
		src := env.SetupSource("", map[string]string{"a.txt": "a"})

		_, err := resolver.New(env.FS).Resolve(types.Rule{SourceRoot: src, Include: []string{"*.md"}})
		assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
	})

	t.Run("no_match_allowed", func(t *testing.T) {
		env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
		src := env.SetupSource("", map[string]string{"a.txt": "a"})

		entries, err := resolver.New(env.FS).Resolve(types.Rule{
			SourceRoot: src,
			Include:    []string{"*.md"},
			AllowEmpty: true,
		})
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestResolver_Symlinks(t *testing.T) {
	setup := func(t *testing.T) (*testutil.TestEnvironment, string) {
		env := testutil.NewTestEnvironment(t, testutil.EnvIsolated)
		src := env.SetupSource("app", map[string]string{
			"a.txt": "a",
		})
		shared := env.SetupSource("shared", map[string]string{
			"s.txt": "s",
		})
		env.Symlink(shared, filepath.Join(src, "linked"))
		env.Symlink(filepath.Join(src, "a.txt"), filepath.Join(src, "alias.txt"))
		env.Symlink(filepath.Join(src, "missing.txt"), filepath.Join(src, "broken.txt"))
		return env, src
	}

	t.Run("linked_directories_skipped_by_default", func(t *testing.T) {
		env, src := setup(t)

		entries, err := resolver.New(env.FS).Resolve(types.Rule{SourceRoot: src})
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt", "alias.txt"}, relPaths(entries))
	})

	t.Run("linked_directories_followed", func(t *testing.T) {
		env, src := setup(t)

		entries, err := resolver.New(env.FS).Resolve(types.Rule{SourceRoot: src, FollowSymlinks: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt", "alias.txt", "linked/s.txt"}, relPaths(entries))
		assert.Equal(t, filepath.Join(src, "linked", "s.txt"), entries[2].SourcePath)
	})

	t.Run("cycles_terminate", func(t *testing.T) {
		env, src := setup(t)
		env.Symlink(src, filepath.Join(src, "loop"))

		entries, err := resolver.New(env.FS).Resolve(types.Rule{SourceRoot: src, FollowSymlinks: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt", "alias.txt", "linked/s.txt"}, relPaths(entries))
	})

	t.Run("memory_filesystem_follows_links", func(t *testing.T) {
		env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
		src := env.SetupSource("app", map[string]string{"a.txt": "a"})
		shared := env.SetupSource("shared", map[string]string{"s.txt": "s"})
		env.Symlink(shared, filepath.Join(src, "linked"))

		entries, err := resolver.New(env.FS).Resolve(types.Rule{SourceRoot: src, FollowSymlinks: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"a.txt", "linked/s.txt"}, relPaths(entries))
	})
}

func TestResolver_ResolveAll(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	one := env.SetupSource("one", map[string]string{"a.txt": "a", "b.txt": "b"})
	two := env.SetupSource("two", map[string]string{"c.md": "c"})

	rules := []types.Rule{
		{Name: "one", SourceRoot: one, TargetTemplate: "x/"},
		{Name: "two", SourceRoot: two, TargetTemplate: "y/"},
		{Name: "again", SourceRoot: one, Include: []string{"b.*"}, TargetTemplate: "z/"},
	}

	t.Run("matches_sequential_resolution", func(t *testing.T) {
		r := resolver.New(env.FS)
		results, err := r.ResolveAll(context.Background(), rules, 2)
		require.NoError(t, err)
		require.Len(t, results, len(rules))

		for i, rule := range rules {
			expected, err := r.Resolve(rule)
			require.NoError(t, err)
			for j := range expected {
				expected[j].RuleIndex = i
			}
			assert.Equal(t, expected, results[i], "rule %d", i)
		}
	})

	t.Run("first_failing_rule_wins", func(t *testing.T) {
		bad := append([]types.Rule{}, rules...)
		bad[1] = types.Rule{Name: "missing", SourceRoot: env.Path("nope")}
		bad[2] = types.Rule{Name: "pattern", SourceRoot: one, Include: []string{"[x"}}

		for i := 0; i < 10; i++ {
			_, err := resolver.New(env.FS).ResolveAll(context.Background(), bad, 4)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
		}
	})

	t.Run("cancelled_context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := resolver.New(env.FS).ResolveAll(ctx, rules, 1)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestResolver_ExcludedDirectoriesArePruned(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	src := env.SetupSource("", map[string]string{
		"main.go":          "m",
		"build/x":          "x",
		"build/deep/y":     "y",
		"tools/build/z":    "z",
		"tools/builder.go": "b",
	})

	entries, err := resolver.New(env.FS).Resolve(types.Rule{
		SourceRoot:     src,
		Exclude:        []string{"build", "**/build"},
		TargetTemplate: "out/",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.go", "tools/builder.go"}, relPaths(entries))
}

func TestResolver_LinkRule(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	r := resolver.New(env.FS)

	t.Run("explicit_path", func(t *testing.T) {
		entries, err := r.Resolve(types.Rule{
			Name:           "soname",
			LinkTarget:     "libfoo.so.1",
			TargetTemplate: "lib/libfoo.so",
		})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "lib/libfoo.so", entries[0].TargetPath)
		assert.Equal(t, "libfoo.so.1", entries[0].SourcePath)
		assert.Equal(t, types.ModeSymlink, entries[0].Mode)
		assert.True(t, entries[0].Literal)
	})

	t.Run("directory_target_takes_link_name", func(t *testing.T) {
		entries, err := r.Resolve(types.Rule{
			LinkTarget:     "/usr/share/zoneinfo/UTC",
			TargetTemplate: "etc/",
		})
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "etc/UTC", entries[0].TargetPath)
	})
}

func TestResolver_Aliases(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	src := env.SetupSource("", map[string]string{"libfoo.so.1": "elf"})

	entries, err := resolver.New(env.FS).Resolve(types.Rule{
		SourceRoot:     src,
		TargetTemplate: "lib/{file_name}",
		Aliases:        []string{"{stem}", "libfoo.so.1.0"},
	})
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, []string{"lib/libfoo.so", "lib/libfoo.so.1", "lib/libfoo.so.1.0"}, targets(entries))

	byTarget := make(map[string]types.ResolvedEntry)
	for _, e := range entries {
		byTarget[e.TargetPath] = e
	}
	assert.Equal(t, types.ModeCopy, byTarget["lib/libfoo.so.1"].Mode)
	assert.False(t, byTarget["lib/libfoo.so.1"].Literal)
	for _, alias := range []string{"lib/libfoo.so", "lib/libfoo.so.1.0"} {
		assert.Equal(t, "libfoo.so.1", byTarget[alias].SourcePath)
		assert.Equal(t, types.ModeSymlink, byTarget[alias].Mode)
		assert.True(t, byTarget[alias].Literal)
	}
}

func TestResolver_InvalidAlias(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	src := env.SetupSource("", map[string]string{"a": "a"})

	for _, alias := range []string{"", "..", "sub/a", "{relative_path}", "{dir}.link"} {
		t.Run(alias, func(t *testing.T) {
			_, err := resolver.New(env.FS).Resolve(types.Rule{
				SourceRoot:     src,
				TargetTemplate: "out/",
				Aliases:        []string{alias},
			})
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrInvalidInput))
		})
	}
}

func TestResolver_AliasNamingTheFileIsSkipped(t *testing.T) {
	env := testutil.NewTestEnvironment(t, testutil.EnvMemoryOnly)
	src := env.SetupSource("", map[string]string{"tool": "t"})

	entries, err := resolver.New(env.FS).Resolve(types.Rule{
		SourceRoot:     src,
		TargetTemplate: "bin/{file_name}",
		Aliases:        []string{"{stem}"},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].Literal)
}
