package event

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// Returns the reference checked out in the repository containing dir.
//
// A checked-out branch yields its full name ("refs/heads/main"). A detached
// HEAD yields the first tag pointing at the HEAD commit, annotated or
// lightweight, and falls back to the commit hash.
func HeadRef(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", ErrNoRef, dir, err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoRef, err)
	}

	if head.Name().IsBranch() {
		return head.Name().String(), nil
	}

	tag, err := tagAt(repo, head.Hash())
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoRef, err)
	}
	if tag != "" {
		return tag, nil
	}

	return head.Hash().String(), nil
}

// Finds a tag whose target commit is hash. Returns "" when none matches.
func tagAt(repo *git.Repository, hash plumbing.Hash) (string, error) {
	tags, err := repo.Tags()
	if err != nil {
		return "", err
	}

	var found string
	err = tags.ForEach(func(ref *plumbing.Reference) error {
		target := ref.Hash()

		// Annotated tags point at a tag object; peel it to the commit.
		if obj, err := repo.TagObject(target); err == nil {
			commit, err := obj.Commit()
			if err != nil {
				return nil
			}
			target = commit.Hash
		}

		if target == hash {
			found = ref.Name().String()
			return storer.ErrStop
		}
		return nil
	})
	if err != nil && !errors.Is(err, storer.ErrStop) {
		return "", err
	}

	return found, nil
}
