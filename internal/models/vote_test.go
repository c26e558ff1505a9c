package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTargetKinds(t *testing.T) {
	tables := map[TargetKind]string{}
	for _, k := range TargetKinds {
		assert.True(t, k.Valid(), k)
		tables[k] = k.Table()
	}
	assert.Equal(t, map[TargetKind]string{TargetProject: "projects", TargetThread: "threads"}, tables)

	// Route segments are not kinds; handlers bind the kind per route.
	for _, k := range []TargetKind{"projects", "threads", "comment", ""} {
		assert.False(t, k.Valid(), k)
		assert.Empty(t, k.Table(), k)
	}
}
