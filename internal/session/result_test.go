package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codefionn/queryserverd/internal/protoerr"
)

func TestResultTerminal(t *testing.T) {
	cases := []struct {
		name string
		r    Result
		want bool
	}{
		{"find_all success is terminal", Result{Kind: ResultSuccess, FindAll: true}, true},
		{"find_all failure is terminal", Result{Kind: ResultFailure, FindAll: true}, true},
		{"streamed success is not terminal", Result{Kind: ResultSuccess, FindAll: false}, false},
		{
			"streamed failure is not terminal, spec.md §8's false-then-no_more_results",
			Result{Kind: ResultFailure, FindAll: false},
			false,
		},
		{"exception is always terminal, find_all", Result{Kind: ResultException, Err: protoerr.ErrNoMoreResults, FindAll: true}, true},
		{"exception is always terminal, streamed", Result{Kind: ResultException, Err: protoerr.ErrNoMoreResults, FindAll: false}, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, c.r.Terminal())
		})
	}
}
