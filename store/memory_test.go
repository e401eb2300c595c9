package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDuplicateMemoryGroupIDsToDelete(t *testing.T) {
	group := &DuplicateMemoryGroup{IDs: []string{"newest", "older", "oldest"}}
	assert.Equal(t, []string{"older", "oldest"}, group.IDsToDelete())

	assert.Nil(t, (&DuplicateMemoryGroup{IDs: []string{"only"}}).IDsToDelete())
	assert.Nil(t, (&DuplicateMemoryGroup{}).IDsToDelete())
}

func TestMemoryValidate(t *testing.T) {
	valid := &Memory{
		ID:            "id-1",
		PersonaID:     "persona-1",
		PersonalityID: "personality-1",
		Content:       "User: Hello\nAssistant: Hi!",
		Embedding:     []float32{1, 2, 3},
	}
	assert.NoError(t, valid.Validate())

	missingEmbedding := *valid
	missingEmbedding.Embedding = nil
	assert.Error(t, missingEmbedding.Validate())

	missingContent := *valid
	missingContent.Content = ""
	assert.Error(t, missingContent.Validate())

	missingScope := *valid
	missingScope.PersonaID = ""
	assert.Error(t, missingScope.Validate())
}
