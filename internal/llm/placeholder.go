package llm

import (
	"context"
	"strings"
)

// Placeholder returns a canned report without calling any provider. Used in
// dev when no API key is configured.
type Placeholder struct{}

func (Placeholder) GenerateReport(ctx context.Context, combinedText string) (Report, error) {
	text := `# Diagnostic Report

## Executive Summary

This is a placeholder report generated without a model provider. Configure ANTHROPIC_API_KEY to produce real analysis.

## Current State Assessment

The submitted documents were received and extracted successfully.

## Recommended Action Plan

1. Configure a model provider.
2. Re-run the analysis.
`
	usage := Usage{
		InputTokens:  len(strings.Fields(combinedText)),
		OutputTokens: len(strings.Fields(text)),
	}
	return Report{
		Text:  text,
		Usage: usage,
		Cost:  EstimateCost("", usage),
	}, nil
}

var _ Client = Placeholder{}
