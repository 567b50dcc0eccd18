package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjulian5/syncbridge/internal/entities"
)

func repo(t *testing.T, name string) entities.Repo {
	r, err := entities.NewRepo("alice", name)
	require.NoError(t, err)
	return r
}

func TestUnionReposDedupsAndSorts(t *testing.T) {
	a := repo(t, "a")
	b := repo(t, "b")
	c := repo(t, "c")

	got := unionRepos([]entities.Repo{b, a}, []entities.Repo{a, c})
	assert.Equal(t, []entities.Repo{a, b, c}, got)
}

func TestUnionReposEmptyInputs(t *testing.T) {
	assert.Empty(t, unionRepos(nil, nil))
}

func TestSymmetricDifferenceUnionIgnoresUnchanged(t *testing.T) {
	a := repo(t, "a")
	b := repo(t, "b")
	c := repo(t, "c")

	// a unchanged on both sides; b added on the first side; c added on
	// the second side.
	got := symmetricDifferenceUnion(
		[]entities.Repo{a}, []entities.Repo{a, b},
		[]entities.Repo{a}, []entities.Repo{a, c},
	)
	assert.Equal(t, []entities.Repo{b, c}, got)
}

func TestSymmetricDifferenceUnionCatchesRemovals(t *testing.T) {
	a := repo(t, "a")
	b := repo(t, "b")

	got := symmetricDifferenceUnion(
		[]entities.Repo{a, b}, []entities.Repo{a},
		nil, nil,
	)
	assert.Equal(t, []entities.Repo{b}, got)
}
