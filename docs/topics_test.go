package docs

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"testing"
)

func TestTopics(t *testing.T) {
	// Every topic listed in readme.md can be loaded, and every .md file is
	// listed in readme.md.
	file, err := os.Open("readme.md")
	if err != nil {
		t.Fatalf("failed to open readme.md: %v", err)
	}
	defer file.Close()

	var topicsInReadme []string
	scanner := bufio.NewScanner(file)
	topicRegex := regexp.MustCompile(`^\*\s+([^:]+):.*$`)
	for scanner.Scan() {
		if matches := topicRegex.FindStringSubmatch(scanner.Text()); len(matches) > 1 {
			topicsInReadme = append(topicsInReadme, strings.TrimSpace(matches[1]))
		}
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("error scanning readme.md: %v", err)
	}

	for _, topic := range topicsInReadme {
		t.Run("load_"+topic, func(t *testing.T) {
			if _, err := GetTopic(topic); err != nil {
				t.Errorf("failed to get topic %q: %v", topic, err)
			}
		})
	}

	files, err := filepath.Glob("*.md")
	if err != nil {
		t.Fatalf("failed to glob *.md: %v", err)
	}
	for _, file := range files {
		base := strings.TrimSuffix(filepath.Base(file), ".md")
		if base != "readme" && !slices.Contains(topicsInReadme, base) {
			t.Errorf("topic %q is not listed in docs/readme.md", base)
		}
	}

	all, err := GetAllTopics()
	if err != nil {
		t.Fatal(err)
	}
	slices.Sort(topicsInReadme)
	if !slices.Equal(all, topicsInReadme) {
		t.Errorf("GetAllTopics() = %v, want %v", all, topicsInReadme)
	}
}

func TestGetTopic_Star(t *testing.T) {
	content, err := GetTopic("*")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"# Classification", "# Warnings", "# Books file"} {
		if !strings.Contains(content, want) {
			t.Errorf("GetTopic(*) does not contain %q", want)
		}
	}
	if _, err := GetTopic("nope"); err == nil {
		t.Error("GetTopic(nope) should fail")
	}
}

func TestTitle(t *testing.T) {
	tests := map[string]string{
		"readme":         "ta documentation",
		"classification": "Classification",
		"books":          "Books file",
		"running":        "Running totals",
	}
	for topic, want := range tests {
		got, err := Title(topic)
		if err != nil {
			t.Errorf("Title(%q) error = %v", topic, err)
			continue
		}
		if got != want {
			t.Errorf("Title(%q) = %q, want %q", topic, got, want)
		}
	}
}
