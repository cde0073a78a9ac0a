package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRecipesParse(t *testing.T) {
	recipes, err := loadRecipes("")
	require.NoError(t, err)
	require.NotEmpty(t, recipes)
	for _, r := range recipes {
		assert.NotEmpty(t, r.Title)
		assert.NotEmpty(t, r.Ingredients, r.Title)
		assert.Positive(t, r.Servings, r.Title)
	}
}

func TestLoadRecipesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recipes.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"title":"Toast","servings":1,"ingredients":[{"name":"Bread","calories":80}]}]`), 0o600))

	recipes, err := loadRecipes(path)
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, 80.0, recipes[0].Ingredients[0].Calories)

	_, err = loadRecipes(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
