package journal

import (
	"bytes"
	"os"
	"text/template"
	"time"

	"github.com/pkg/errors"
)

// Run is one archived backtest: its parameters and summary results.
type Run struct {
	RunID   string
	Created time.Time
	Dataset string

	Instrument string
	Strategy   string
	Config     []byte // effective configuration as YAML

	FastPeriod int
	SlowPeriod int
	RSIPeriod  int
	RSIMethod  string
	Oversold   float64
	Overbought float64
	FeeRate    float64
	TradeSize  float64

	Start time.Time
	End   time.Time
	Bars  int

	// Results
	Trades int
	Wins   int
	Losses int

	StartBalance float64
	EndBalance   float64

	NetPL        float64
	ReturnPct    float64
	WinRate      float64
	ProfitFactor float64
	MaxDDPct     float64

	OrgPath string
	Notes   []string
}

var runOrgFuncs = template.FuncMap{
	"mul100": func(x float64) float64 { return x * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var runOrg = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

// Org renders the run as an org-mode research entry.
func (r *Run) Org() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := runOrg.Execute(buf, r); err != nil {
		return nil, errors.Wrap(err, "render org report")
	}
	return buf.Bytes(), nil
}

// WriteOrg writes the org entry to r.OrgPath.
func (r *Run) WriteOrg() error {
	if r.OrgPath == "" {
		return errors.New("org path is not set")
	}
	b, err := r.Org()
	if err != nil {
		return err
	}
	return os.WriteFile(r.OrgPath, b, 0o644)
}

const RunOrgTemplate = `
* BACKTEST: MA-Cross RSI {{.Instrument}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGY:    {{if .Strategy}}{{.Strategy}}{{else}}ma-cross-rsi{{end}}
:INSTRUMENT:  {{.Instrument}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:BARS:        {{.Bars}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" (mul100 .WinRate)}}
:PROFIT_FAC:  {{if ne .ProfitFactor 0.0}}{{printf "%.2f" .ProfitFactor}}{{else}}(profit-factor?){{end}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
| Parameter    | Value |
|--------------+-------|
| Fast MA      | {{.FastPeriod}} |
| Slow MA      | {{.SlowPeriod}} |
| RSI          | {{.RSIPeriod}} ({{if .RSIMethod}}{{.RSIMethod}}{{else}}simple{{end}}) |
| Oversold     | {{printf "%.1f" .Oversold}} |
| Overbought   | {{printf "%.1f" .Overbought}} |
| Trade size   | {{printf "%g" .TradeSize}} |
| Fee rate     | {{printf "%g" .FeeRate}} |

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:     *{{printf "%.2f" .MaxDDPct}}%*
- Win Rate:         *{{printf "%.2f" (mul100 .WinRate)}}%*
- Profit Factor:    *{{if ne .ProfitFactor 0.0}}{{printf "%.2f" .ProfitFactor}}{{else}}(profit-factor?){{end}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Total   | {{.Trades}} |

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
