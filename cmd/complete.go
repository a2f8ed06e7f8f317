package cmd

import (
	"github.com/posener/complete/v2"
	"github.com/posener/complete/v2/predict"
)

var (
	predictBy      = predict.Set{"cusip", "position"}
	predictBooks   = predict.Files("*.jsonl")
	predictReports = predict.Set{"balances", "running", "restrictions", "statement"}
	predictTopics  = predict.Set{"books", "classification", "balances", "running", "restrictions", "statement", "warnings", "config", "*"}
)

// Complete handles shell completion for the ta command named name. It only
// returns when the program is not run for completion.
func Complete(name string) {
	cmd := &complete.Command{
		Flags: map[string]complete.Predictor{
			"config":    predict.Files("*.yaml"),
			"books":     predictBooks,
			"db":        predict.Files("*.db"),
			"issuer":    predict.Something,
			"log-level": predict.Set{"debug", "info", "warn", "error"},
			"raw":       predict.Nothing,
		},
		Sub: map[string]*complete.Command{
			"balances": {Flags: map[string]complete.Predictor{"by": predictBy}},
			"running":  {Flags: map[string]complete.Predictor{"by": predictBy}},
			"ledger": {Flags: map[string]complete.Predictor{
				"by":     predictBy,
				"holder": predict.Something,
				"cusip":  predict.Something,
			}},
			"restrictions": {},
			"statement": {Flags: map[string]complete.Predictor{
				"holder": predict.Something,
				"d":      predict.Something,
			}},
			"import": {Args: predictBooks},
			"export": {Flags: map[string]complete.Predictor{
				"what":   predictReports,
				"by":     predictBy,
				"holder": predict.Something,
				"d":      predict.Something,
			}},
			"fmt": {
				Flags: map[string]complete.Predictor{"w": predict.Nothing},
				Args:  predictBooks,
			},
			"fetch-prices": {},
			"topic": {
				Flags: map[string]complete.Predictor{"l": predict.Nothing},
				Args:  predictTopics,
			},
			"help":     {},
			"flags":    {},
			"commands": {},
		},
	}
	cmd.Complete(name)
}
