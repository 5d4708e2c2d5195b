// Package gitmeta reads release metadata (commit, nearest tag) from the
// repository being packaged so artifacts and logs carry a version.
package gitmeta

import (
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// Meta is the version information stamped into a build.
type Meta struct {
	// Version is the tag pointing at HEAD, or "dev" when there is none.
	Version string
	// Commit is the abbreviated HEAD hash, empty outside a repository.
	Commit string
}

// Describe inspects dir (searching upward for .git). Running outside a git
// repository is a normal, non-fatal state: release tarballs of the source
// build fine and report a "dev" version.
func Describe(dir string) Meta {
	meta := Meta{Version: "dev"}

	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return meta
	}

	head, err := repo.Head()
	if err != nil {
		return meta
	}
	meta.Commit = head.Hash().String()[:8]

	if tag := tagAt(repo, head.Hash()); tag != "" {
		meta.Version = tag
	}
	return meta
}

// tagAt returns the name of a tag pointing at the given commit, resolving
// annotated tags to their target.
func tagAt(repo *git.Repository, hash plumbing.Hash) string {
	tags, err := repo.Tags()
	if err != nil {
		return ""
	}
	defer tags.Close()

	var found string
	_ = tags.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()
		if obj, err := repo.TagObject(ref.Hash()); err == nil {
			target = obj.Target
		}
		if target == hash {
			found = ref.Name().Short()
			return storer.ErrStop
		}
		return nil
	})
	return found
}
