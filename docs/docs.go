//go:build docs

package main

import (
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/maxgio92/sampleprof/internal/settings"
	"github.com/maxgio92/sampleprof/pkg/cmd"
	"github.com/maxgio92/sampleprof/pkg/cmd/options"

	log "github.com/rs/zerolog"
	"github.com/spf13/cobra/doc"
)

const (
	docsDir        = "docs"
	templateMarker = "{{ .CLI_REFERENCE }}"
)

func noHeader(string) string {
	return ""
}

// linkTarget points the root command page to the README.
func linkTarget(filename string) string {
	if filename == settings.CmdName+".md" {
		return "README.md"
	}

	return path.Join(docsDir, filename)
}

func main() {
	cmdDocsPath := path.Join(docsDir, settings.CmdName+".md")

	// Generate CLI docs
	if err := doc.GenMarkdownTreeCustom(
		cmd.NewCommand(
			options.NewOptions(
				options.WithLogger(log.New(os.Stderr).Level(log.InfoLevel)),
			),
		),
		docsDir,
		noHeader,
		linkTarget,
	); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	// Read the original (handwritten) README
	readmeBytes, err := os.ReadFile("README.md.tpl")
	if err != nil {
		fmt.Println("failed to read README template:", err)
		os.Exit(1)
	}
	readme := string(readmeBytes)

	// Read the CLI generated docs
	cmdDocsBytes, err := os.ReadFile(cmdDocsPath)
	if err != nil {
		fmt.Println("failed to read CLI doc README:", err)
		os.Exit(1)
	}
	cmdDocs := string(cmdDocsBytes)

	// Replace the template marker
	finalReadme := strings.Replace(readme, templateMarker, cmdDocs, 1)

	// Write the final README
	err = os.WriteFile("README.md", []byte(finalReadme), 0644)
	if err != nil {
		fmt.Println("failed to write final README:", err)
		os.Exit(1)
	}
}
