package keypath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	ctx := map[string]any{
		"name": "ann",
		"user": map[string]any{
			"address": map[string]any{"city": "Oslo"},
			"age":     42,
		},
	}

	tests := []struct {
		name  string
		path  string
		want  any
		found bool
	}{
		{"top level", "name", "ann", true},
		{"nested", "user.address.city", "Oslo", true},
		{"intermediate record", "user.age", 42, true},
		{"missing leaf", "user.email", nil, false},
		{"missing intermediate", "user.contacts.phone", nil, false},
		{"non-record intermediate", "name.length", nil, false},
		{"empty path", "", nil, false},
		{"trailing dot", "user.", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := Get(ctx, tt.path)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGet_Dot(t *testing.T) {
	ctx := map[string]any{"a": 1}
	got, found := Get(ctx, ".")
	assert.True(t, found)
	assert.Equal(t, ctx, got)
}

func TestGet_NilContext(t *testing.T) {
	_, found := Get(nil, "a")
	assert.False(t, found)
}

func TestSet(t *testing.T) {
	ctx := map[string]any{}

	Set(ctx, "name", "ann")
	assert.Equal(t, "ann", ctx["name"])

	Set(ctx, "user.address.city", "Oslo")
	v, found := Get(ctx, "user.address.city")
	assert.True(t, found)
	assert.Equal(t, "Oslo", v)
}

func TestSet_OverwritesNonRecordIntermediate(t *testing.T) {
	ctx := map[string]any{"user": "not a record"}

	Set(ctx, "user.name", "ann")

	v, found := Get(ctx, "user.name")
	assert.True(t, found)
	assert.Equal(t, "ann", v)
}

func TestSet_NoopPaths(t *testing.T) {
	ctx := map[string]any{"a": 1}
	Set(ctx, "", "x")
	Set(ctx, ".", "x")
	assert.Equal(t, map[string]any{"a": 1}, ctx)
}

func TestHead(t *testing.T) {
	head, rest := Head("user.address.city")
	assert.Equal(t, "user", head)
	assert.Equal(t, "address.city", rest)

	head, rest = Head("name")
	assert.Equal(t, "name", head)
	assert.Equal(t, "", rest)

	head, rest = Head(".")
	assert.Equal(t, ".", head)
	assert.Equal(t, "", rest)
}
