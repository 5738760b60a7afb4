package services

import (
	"fmt"
	"html/template"
	"log"
	"strings"

	"datapilot/ui/templates/fragments"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

type RenderService struct {
	templates *template.Template
}

func NewRenderService(templates *template.Template) *RenderService {
	return &RenderService{
		templates: templates,
	}
}

// RenderFragment executes a fragment template into a string. Short names
// such as "wizard_panel" resolve to their file under fragments/.
func (s *RenderService) RenderFragment(name string, data interface{}) (string, error) {
	path := fragments.GetTemplatePath(name)
	if !fragments.IsFragment(path) {
		return "", fmt.Errorf("%s is a page template, not a fragment", path)
	}
	var buf strings.Builder
	if err := s.templates.ExecuteTemplate(&buf, path, data); err != nil {
		log.Printf("[ERROR] Failed to render %s template: %v", name, err)
		return "", err
	}
	return buf.String(), nil
}

// Markdown converts an insight answer to HTML. Raw HTML in the source is
// dropped and only http, https, mailto and relative links survive.
func Markdown(source string) template.HTML {
	if strings.TrimSpace(source) == "" {
		return ""
	}
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.NoEmptyLineBeforeBlock)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{
		Flags: mdhtml.CommonFlags | mdhtml.SkipHTML | mdhtml.Safelink | mdhtml.NofollowLinks | mdhtml.HrefTargetBlank,
	})
	return template.HTML(markdown.ToHTML([]byte(source), p, renderer))
}
