package script

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pwmtool/internal/pwm"
)

func ops(p Program) string {
	b := make([]byte, 0, len(p.Steps))
	for _, s := range p.Steps {
		b = append(b, byte(s.Op))
	}
	return string(b)
}

func TestParseBuiltins(t *testing.T) {
	p := Parse(DefaultScript)
	require.NoError(t, p.Err)
	assert.Equal(t, "fdu", ops(p))
	assert.False(t, p.KeepEnabled())

	p = Parse(DefaultKeepScript)
	require.NoError(t, p.Err)
	assert.Equal(t, "fduk", ops(p))
	assert.True(t, p.KeepEnabled())
}

func TestParseArguments(t *testing.T) {
	p := Parse("f2000d25%d128D500uoD")
	require.NoError(t, p.Err)
	require.Len(t, p.Steps, 7)

	assert.Equal(t, Step{Op: OpFrequency, Offset: 0, HasArg: true, Hz: 2000}, p.Steps[0])
	assert.Equal(t, Step{Op: OpDuty, Offset: 5, HasArg: true, Duty: pwm.DutyPercent(25)}, p.Steps[1])
	assert.Equal(t, Step{Op: OpDuty, Offset: 9, HasArg: true, Duty: pwm.DutyRaw(128)}, p.Steps[2])
	assert.Equal(t, Step{Op: OpWait, Offset: 13, HasArg: true, Wait: 500 * time.Millisecond}, p.Steps[3])
	assert.Equal(t, OpEnable, p.Steps[4].Op)
	assert.Equal(t, OpDisable, p.Steps[5].Op)
	assert.Equal(t, Step{Op: OpWait, Offset: 19}, p.Steps[6])
}

func TestParseUnknownKeepsPrefix(t *testing.T) {
	p := Parse("fdx")
	assert.Equal(t, "fd", ops(p))
	var uc *pwm.UnknownCommandError
	require.ErrorAs(t, p.Err, &uc)
	assert.Equal(t, 'x', uc.Letter)
	assert.Equal(t, 2, uc.Offset)
	assert.Equal(t, pwm.UnknownCommand, pwm.CodeOf(p.Err))
}

func TestParseUnknownNonASCII(t *testing.T) {
	p := Parse("fé")
	var uc *pwm.UnknownCommandError
	require.ErrorAs(t, p.Err, &uc)
	assert.Equal(t, 'é', uc.Letter)
}

func TestParseBadArguments(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		prefix string
		offset int
	}{
		{"frequency overflow", "uf99999999999", "u", 1},
		{"wait overflow", "D4294967296", "", 0},
		{"bare percent", "fd%", "f", 1},
		{"duty overflow", "d4294967296%", "", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Parse(tc.src)
			assert.Equal(t, tc.prefix, ops(p))
			var ae *pwm.ArgumentError
			require.ErrorAs(t, p.Err, &ae)
			assert.Equal(t, tc.offset, ae.Offset)
			assert.Equal(t, pwm.InvalidArgument, pwm.CodeOf(p.Err))
		})
	}
}

func TestParseEmpty(t *testing.T) {
	p := Parse("")
	assert.NoError(t, p.Err)
	assert.Empty(t, p.Steps)
}

func TestStepString(t *testing.T) {
	for _, src := range []string{"f", "f440", "d", "d7", "d50%", "D", "D250", "u", "o", "k"} {
		p := Parse(src)
		require.NoError(t, p.Err, src)
		require.Len(t, p.Steps, 1, src)
		assert.Equal(t, src, p.Steps[0].String())
	}
}

func TestParseRepeats(t *testing.T) {
	src := ""
	for i := 0; i < 5; i++ {
		src += "uD" + strconv.Itoa(i*10) + "o"
	}
	p := Parse(src)
	require.NoError(t, p.Err)
	assert.Len(t, p.Steps, 15)
}
