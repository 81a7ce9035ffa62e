package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"GoModelRouter/pkg/generation"
)

var generateFlags struct {
	topic  string
	prompt string
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one article through the candidate fallback loop",
	RunE:  runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateFlags.topic, "topic", "", "Article topic (default: let the model choose)")
	f.StringVar(&generateFlags.prompt, "prompt", "", "Raw user prompt, overrides --topic")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	req := generation.Request{Prompt: generateFlags.prompt}
	if req.Prompt == "" {
		req.Prompt = generation.ArticlePrompt(generateFlags.topic)
	}
	res, err := a.orch.Generate(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("generate: %w", err)
	}
	return printValue(cmd, res)
}
