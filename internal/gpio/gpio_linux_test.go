//go:build linux

package gpio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pwmtool/internal/pwm"
)

type fakeLine struct {
	values []int
	closed bool
	setErr error
}

func (l *fakeLine) SetValue(v int) error {
	if l.setErr != nil {
		return l.setErr
	}
	l.values = append(l.values, v)
	return nil
}

func (l *fakeLine) Close() error {
	l.closed = true
	return nil
}

func withFakeLine(t *testing.T, l *fakeLine, openErr error) {
	t.Helper()
	old := openLineFn
	openLineFn = func(chip, offset uint) (outputLine, error) {
		if openErr != nil {
			return nil, openErr
		}
		return l, nil
	}
	t.Cleanup(func() { openLineFn = old })
}

func TestLineFollowsEnableAndDuty(t *testing.T) {
	line := &fakeLine{}
	withFakeLine(t, line, nil)

	ch, err := pwm.Open(New(0, 18), pwm.Options{Export: true})
	require.NoError(t, err)
	require.NoError(t, ch.SetFrequency(25000))
	require.NoError(t, ch.ApplyDuty(pwm.DutyPercent(40)))
	assert.Empty(t, line.values, "line stays low until enabled")

	require.NoError(t, ch.Enable())
	assert.Equal(t, []int{1}, line.values)

	require.NoError(t, ch.Disable())
	assert.Equal(t, []int{1, 0}, line.values)

	require.NoError(t, ch.Close(false))
	assert.Equal(t, []int{1, 0, 0}, line.values)
	assert.True(t, line.closed)
}

func TestKeepEnabledLeavesLineHigh(t *testing.T) {
	line := &fakeLine{}
	withFakeLine(t, line, nil)

	ch, err := pwm.Open(New(0, 18), pwm.Options{Export: true})
	require.NoError(t, err)
	require.NoError(t, ch.SetFrequency(25000))
	require.NoError(t, ch.ApplyDuty(pwm.DutyRaw(1)))
	require.NoError(t, ch.Enable())

	require.NoError(t, ch.Close(true))
	assert.Equal(t, []int{1}, line.values)
	assert.True(t, line.closed)
}

func TestExportTwiceReportsAlreadyExported(t *testing.T) {
	withFakeLine(t, &fakeLine{}, nil)
	b := New(0, 4)
	require.NoError(t, b.Export())
	assert.ErrorIs(t, b.Export(), pwm.ErrAlreadyExported)
}

func TestExportFailureKeepsCode(t *testing.T) {
	withFakeLine(t, nil, &pwm.Error{C: pwm.DeviceNotFound, Op: "export", Err: errors.New("no chip")})
	_, err := pwm.Open(New(7, 0), pwm.Options{Export: true})
	assert.Equal(t, pwm.DeviceNotFound, pwm.CodeOf(err))
}

func TestWriteBeforeExportFails(t *testing.T) {
	err := New(0, 0).Write(pwm.AttrEnable, 1)
	assert.Equal(t, pwm.IOFailure, pwm.CodeOf(err))
}

func TestSetValueFailureIsIOError(t *testing.T) {
	withFakeLine(t, &fakeLine{setErr: errors.New("line gone")}, nil)
	b := New(0, 0)
	require.NoError(t, b.Export())
	require.NoError(t, b.Write(pwm.AttrDutyCycle, 10))

	err := b.Write(pwm.AttrEnable, 1)
	var ioErr *pwm.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, pwm.AttrEnable, ioErr.Attr)
}

func TestChipCode(t *testing.T) {
	assert.Equal(t, pwm.IOFailure, chipCode(errors.New("busy")))
}
