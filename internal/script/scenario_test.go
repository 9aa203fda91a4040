package script

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"pwmtool/internal/pwm"
)

// scenario is one interpreter case from testdata/scenarios.yaml.
type scenario struct {
	Name      string        `yaml:"name"`
	Script    string        `yaml:"script"`
	Frequency uint32        `yaml:"frequency"`
	Duty      string        `yaml:"duty"`
	Duration  time.Duration `yaml:"duration"`
	Outcome   string        `yaml:"outcome"`
	Code      string        `yaml:"code"`
	Calls     []string      `yaml:"calls"`
}

func loadScenarios(t *testing.T, path string) []scenario {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc struct {
		Version   int        `yaml:"version"`
		Scenarios []scenario `yaml:"scenarios"`
	}
	require.NoError(t, yaml.Unmarshal(b, &doc))
	require.Equal(t, 1, doc.Version)
	require.NotEmpty(t, doc.Scenarios)
	return doc.Scenarios
}

func TestScenarios(t *testing.T) {
	for _, sc := range loadScenarios(t, "testdata/scenarios.yaml") {
		t.Run(sc.Name, func(t *testing.T) {
			cfg := baseConfig(sc.Script)
			if sc.Frequency != 0 {
				cfg.FrequencyHz = sc.Frequency
			}
			if sc.Duty != "" {
				d, err := pwm.ParseDuty(sc.Duty)
				require.NoError(t, err)
				cfg.Duty = d
			}
			if sc.Duration != 0 {
				cfg.Duration = sc.Duration
			}

			dev := &recordingDevice{}
			res, err := Run(dev, cfg)

			if sc.Code == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, sc.Code, pwm.CodeOf(err).String())
			}
			assert.Equal(t, sc.Outcome, res.Outcome.String())
			want := sc.Calls
			if want == nil {
				want = []string{}
			}
			got := dev.Calls()
			if got == nil {
				got = []string{}
			}
			assert.Equal(t, want, got)
		})
	}
}
