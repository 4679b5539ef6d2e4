package discovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modgraph/internal/core/errors"
	"modgraph/internal/testutil"
)

func names(res *Result) []string {
	out := make([]string, 0, len(res.Records))
	for _, r := range res.Records {
		out = append(out, r.Name)
	}
	return out
}

func TestScan_NamesSortedAndDenied(t *testing.T) {
	root := t.TempDir()
	obj := testutil.Object{Functions: []string{"f"}}
	testutil.WriteObject(t, root, "mm/slab_common.o", obj)
	testutil.WriteObject(t, root, "kernel/sched/core.o", obj)
	testutil.WriteObject(t, root, "vmlinux.o", obj)
	testutil.WriteObject(t, root, "scripts/mod/modpost.o", obj)
	testutil.WriteObject(t, root, "drivers/net/e1000.o", obj)
	testutil.WriteObject(t, root, "mm/readme.txt", obj)
	testutil.WriteObject(t, root, "fs/ext2/inode.ko", obj)

	res, err := Scan(context.Background(), Options{
		Root:      root,
		Extension: ".o",
		Denylist:  DefaultDenylist,
		DenyGlobs: []string{"drivers/**"},
		Sort:      true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"kernel/sched/core", "mm/slab_common"}, names(res))
	assert.ElementsMatch(t, []string{"vmlinux", "scripts/mod/modpost", "drivers/net/e1000"}, res.Denied)
	assert.Empty(t, res.Failures)
	assert.Equal(t, filepath.Join(root, "mm", "slab_common.o"), res.Records[1].Path)
}

func TestScan_FailuresDoNotStopDiscovery(t *testing.T) {
	root := t.TempDir()
	testutil.WriteObject(t, root, "a.ko", testutil.Object{Functions: []string{"a"}})
	testutil.WriteObject(t, root, "b.ko", testutil.Object{Functions: []string{"b"}, NoSymtab: true})
	require.NoError(t, os.WriteFile(filepath.Join(root, "c.ko"), []byte("not an object"), 0o644))
	testutil.WriteObject(t, root, "d.ko", testutil.Object{Undefined: []string{"a"}})

	res, err := Scan(context.Background(), Options{Root: root, Extension: ".ko", Sort: true})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "d"}, names(res))
	require.Len(t, res.Failures, 2)
	assert.Equal(t, "b", res.Failures[0].Name)
	assert.Equal(t, "c", res.Failures[1].Name)
	for _, f := range res.Failures {
		assert.True(t, errors.IsCode(f.Err, errors.CodeMalformedInput), f.Err)
	}
	assert.NoError(t, res.Fatal())
}

func TestScan_MissingRoot(t *testing.T) {
	_, err := Scan(context.Background(), Options{Root: filepath.Join(t.TempDir(), "nope"), Extension: ".o"})
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestScan_Cancelled(t *testing.T) {
	root := t.TempDir()
	testutil.WriteObject(t, root, "a.o", testutil.Object{Functions: []string{"a"}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Scan(ctx, Options{Root: root, Extension: ".o"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDenylist(t *testing.T) {
	d, err := NewDenylist([]string{"vmlinux", "scripts/dtc/", " "}, []string{"*/test_*"})
	require.NoError(t, err)

	cases := []struct {
		name string
		want bool
	}{
		{"vmlinux", true},
		{"vmlinux2", false},
		{"scripts/dtc/dtc", true},
		{"scripts/dtc", false},
		{"lib/test_bitmap", true},
		{"lib/sub/test_bitmap", false},
		{"lib/bitmap", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, d.Match(tc.name), tc.name)
	}
}

func TestModuleName(t *testing.T) {
	name, ok := ModuleName("/build", "/build/net/socket.o", ".o")
	assert.True(t, ok)
	assert.Equal(t, "net/socket", name)

	_, ok = ModuleName("/build", "/build/net/socket.ko", ".o")
	assert.False(t, ok)
}

func TestLoadLinkage(t *testing.T) {
	path := testutil.WriteLines(t, filepath.Join(t.TempDir(), "lds.conf"),
		"_stext", "", "  _etext  ", "\t", "jiffies")

	syms, err := LoadLinkage(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"_stext", "_etext", "jiffies"}, syms)

	_, err = LoadLinkage(filepath.Join(t.TempDir(), "missing.conf"))
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}
