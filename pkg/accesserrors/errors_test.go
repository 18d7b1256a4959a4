package accesserrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotFound_HTTPStatusAndAttributes(t *testing.T) {
	err := NotFound("user", "alice")
	assert.Equal(t, 404, err.HTTPStatus())
	assert.Equal(t, uint32(5), err.GRPCCode())
	assert.Equal(t, []Attribute{{Name: "resource", Value: "user"}, {Name: "id", Value: "alice"}}, err.Attributes)
}

func TestIs_MatchesWrappedKind(t *testing.T) {
	inner := NotFound("group", "ghosts")
	wrapped := Internal("failed to process").WithCause(inner)
	assert.True(t, Is(wrapped, KindInternal))
	assert.False(t, Is(wrapped, KindNotFound))
}

func TestInnerChain_RespectsMaxDepth(t *testing.T) {
	e3 := Internal("level3")
	e2 := Internal("level2").WithCause(e3)
	e1 := Internal("level1").WithCause(e2)

	chain := InnerChain(e1, 2)
	assert.Len(t, chain, 2)
	assert.Equal(t, "level1", chain[0].Message)
	assert.Equal(t, "level2", chain[1].Message)
}

func TestInnerChain_UnboundedWhenMaxDepthNonPositive(t *testing.T) {
	e2 := Internal("level2")
	e1 := Internal("level1").WithCause(e2)
	chain := InnerChain(e1, 0)
	assert.Len(t, chain, 2)
}

func TestFlatten_MixesAccessErrorsAndPlainErrors(t *testing.T) {
	attrs := Flatten([]error{
		NotFound("user", "alice"),
		errors.New("plain failure"),
	})
	assert.Equal(t, "NOT_FOUND", attrs[0].Value)
	assert.Equal(t, "user \"alice\" not found", attrs[1].Value)
	assert.Equal(t, "plain failure", attrs[2].Value)
}

func TestHTTPStatus_UnknownKindDefaultsTo500(t *testing.T) {
	err := &AccessError{Kind: "BOGUS"}
	assert.Equal(t, 500, err.HTTPStatus())
}

func TestError_IncludesTargetWhenPresent(t *testing.T) {
	err := WouldCreateCycle("a", "b")
	err.Target = "edge"
	assert.Contains(t, err.Error(), "WOULD_CREATE_CYCLE")
	assert.Contains(t, err.Error(), "target=edge")
}
