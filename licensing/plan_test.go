package licensing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ventasimple/license-api/licensing"
)

func TestLimitForPlan(t *testing.T) {
	assert.Equal(t, 1, licensing.LimitForPlan(licensing.PlanSingle))
	assert.Equal(t, 3, licensing.LimitForPlan(licensing.PlanMulti))
	assert.Equal(t, 1, licensing.LimitForPlan(""))
	assert.Equal(t, 1, licensing.LimitForPlan("enterprise"))
}
