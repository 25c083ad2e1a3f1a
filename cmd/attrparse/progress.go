package main

import (
	"fmt"
	"strings"

	"attrparse/internal/batch"
)

// progressMode is the batch --ui setting.
type progressMode uint8

const (
	progressAuto progressMode = iota
	progressOn
	progressOff
)

var progressModes = map[string]progressMode{"": progressAuto, "auto": progressAuto, "on": progressOn, "off": progressOff}

func parseProgressMode(value string) (progressMode, error) {
	mode, ok := progressModes[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return progressAuto, fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
	return mode, nil
}

// showProgress decides whether the batch runs under the progress UI. In
// auto mode a single item finishes before the UI would draw, so only
// several items on a terminal get one.
func showProgress(mode progressMode, items int, tty bool) bool {
	switch mode {
	case progressOn:
		return true
	case progressOff:
		return false
	}
	return tty && items > 1
}

// batchStages lists the stages each item goes through under opts.
func batchStages(opts batch.Options) []batch.Stage {
	stages := []batch.Stage{batch.StageParse}
	if opts.Trees {
		stages = append(stages, batch.StageTree)
	}
	if opts.Encode {
		stages = append(stages, batch.StageEncode)
	}
	return stages
}

// progressTitle reads like "calc: parse → tree → encode".
func progressTitle(grammarName string, opts batch.Options) string {
	stages := batchStages(opts)
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return grammarName + ": " + strings.Join(names, " → ")
}
