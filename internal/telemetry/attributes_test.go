// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSessionAttributes(t *testing.T) {
	tests := []struct {
		name    string
		session string
		input   string
		index   int
		want    []attribute.KeyValue
	}{
		{
			name:    "all",
			session: "s1", input: "scroll", index: 2,
			want: []attribute.KeyValue{
				attribute.String(SessionIDKey, "s1"),
				attribute.String(InputKey, "scroll"),
				attribute.Int(IndexKey, 2),
			},
		},
		{
			name:    "no index",
			session: "s1", input: "keys", index: -1,
			want: []attribute.KeyValue{
				attribute.String(SessionIDKey, "s1"),
				attribute.String(InputKey, "keys"),
			},
		},
		{name: "empty", index: -1, want: []attribute.KeyValue{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SessionAttributes(tt.session, tt.input, tt.index))
		})
	}
}

func TestItemAndErrorAttributes(t *testing.T) {
	assert.Equal(t, []attribute.KeyValue{
		attribute.String(SessionIDKey, "s"),
		attribute.String(ItemIDKey, "v1"),
	}, ItemAttributes("s", "v1"))

	assert.Nil(t, ErrorAttributes(""))
	assert.Equal(t, []attribute.KeyValue{attribute.String(ErrorTypeKey, "not_found")}, ErrorAttributes("not_found"))
}
