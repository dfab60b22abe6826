package synthesize

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/lueurxax/legal-digest/internal/core/domain"
)

// Artifact is a rendered synthesis ready to be stored.
type Artifact struct {
	Title       string
	Body        string
	Model       string
	Sources     []domain.Article
	GeneratedAt time.Time
	WordCount   int
}

type sourceRef struct {
	Title  string `yaml:"title"`
	Source string `yaml:"source"`
	URL    string `yaml:"url"`
}

type frontMatter struct {
	Topic         string      `yaml:"topic"`
	GeneratedDate string      `yaml:"generated_date"`
	SourceCount   int         `yaml:"source_count"`
	Model         string      `yaml:"model"`
	WordCount     int         `yaml:"word_count"`
	Sources       []sourceRef `yaml:"sources"`
}

// FileName is the artifact's name: SafeName(title) plus the generation date.
func (a *Artifact) FileName() string {
	return SafeName(a.Title) + "_" + a.GeneratedAt.Format(fileDateStamp) + fileExt
}

// Render returns the Markdown document with its YAML header.
func (a *Artifact) Render() ([]byte, error) {
	fm := frontMatter{
		Topic:         a.Title,
		GeneratedDate: a.GeneratedAt.Format(time.RFC3339),
		SourceCount:   len(a.Sources),
		Model:         a.Model,
		WordCount:     a.WordCount,
		Sources:       make([]sourceRef, 0, len(a.Sources)),
	}

	for _, s := range a.Sources {
		fm.Sources = append(fm.Sources, sourceRef{Title: s.Title, Source: s.Source, URL: s.URL})
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("marshal front matter: %w", err)
	}

	var buf bytes.Buffer

	buf.WriteString("---\n")
	buf.Write(header)
	buf.WriteString("---\n\n")
	buf.WriteString(strings.TrimSpace(a.Body))
	buf.WriteString("\n")

	return buf.Bytes(), nil
}

// WordCount counts whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// SafeName turns a title into a filesystem-safe stem: accents are
// transliterated, letters lowered, spaces and slashes become underscores and
// anything outside [a-z0-9_] is dropped.
func SafeName(title string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

	plain, _, err := transform.String(t, title)
	if err != nil {
		plain = title
	}

	var sb strings.Builder

	lastUnderscore := true

	for _, r := range strings.ToLower(plain) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			sb.WriteRune(r)

			lastUnderscore = false
		case r == ' ', r == '/', r == '_':
			if !lastUnderscore {
				sb.WriteByte('_')

				lastUnderscore = true
			}
		}
	}

	name := strings.TrimRight(sb.String(), "_")
	if name == "" {
		return fallbackName
	}

	return name
}

// Sink stores a rendered artifact and returns where it landed.
type Sink interface {
	Put(ctx context.Context, name string, body []byte) (string, error)
}

// FileSink writes artifacts into a local directory.
type FileSink struct {
	dir string
}

func NewFileSink(dir string) *FileSink {
	if dir == "" {
		dir = defaultOutputDir
	}

	return &FileSink{dir: dir}
}

// Put writes body atomically: a temp file in the target directory is renamed
// over the final name, so readers never see a partial artifact.
func (s *FileSink) Put(_ context.Context, name string, body []byte) (string, error) {
	if err := os.MkdirAll(s.dir, dirPerm); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, tempPattern)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	tmpName := tmp.Name()

	if _, err := tmp.Write(body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return "", fmt.Errorf("write artifact: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)

		return "", fmt.Errorf("close artifact: %w", err)
	}

	if err := os.Chmod(tmpName, filePerm); err != nil {
		_ = os.Remove(tmpName)

		return "", fmt.Errorf("chmod artifact: %w", err)
	}

	path := filepath.Join(s.dir, name)
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)

		return "", fmt.Errorf("rename artifact: %w", err)
	}

	return path, nil
}
