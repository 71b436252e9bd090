// Package css is a small CSS reader built on tdewolff tokenizer. It keeps
// enough of stylesheet structure to find references to other resources.
package css

import (
	"bytes"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS stylesheets into structured rules.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new CSS parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses CSS text into a Stylesheet.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) *Stylesheet {
	sheet := &Stylesheet{}

	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), false)
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if parser.Err() != nil && parser.Err().Error() != "EOF" {
				p.log.Debug("CSS parse error", zap.Error(parser.Err()))
				sheet.Warnings = append(sheet.Warnings, parser.Err().Error())
			}
			return sheet

		case css.BeginAtRuleGrammar:
			atRule := strings.ToLower(string(data))
			switch atRule {
			case "@media", "@supports":
				query := joinTokens(parser.Values())
				rules := p.parseBlockRules(parser)
				sheet.Items = append(sheet.Items, StylesheetItem{
					MediaBlock: &MediaBlock{Query: query, Rules: rules},
				})
			case "@font-face", "@page":
				decls := p.parseDeclarations(parser, css.EndAtRuleGrammar)
				if atRule == "@page" {
					sheet.Items = append(sheet.Items, StylesheetItem{Rule: &Rule{Selector: atRule, Declarations: decls}})
					continue
				}
				ff := FontFace{}
				for _, d := range decls {
					switch d.Property {
					case "font-family":
						ff.Family = unquote(d.Raw)
					case "src":
						ff.Src = d.Raw
					}
				}
				sheet.Items = append(sheet.Items, StylesheetItem{FontFace: &ff})
			default:
				p.skipAtRuleBlock(parser)
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}

		case css.AtRuleGrammar:
			atRule := strings.ToLower(string(data))
			if atRule == "@import" {
				if url := extractImportURL(parser.Values()); url != "" {
					sheet.Items = append(sheet.Items, StylesheetItem{Import: &url})
				}
			} else {
				p.log.Debug("Skipping @-rule", zap.String("rule", atRule))
			}

		case css.BeginRulesetGrammar:
			selector := selectorOf(data, parser.Values())
			decls := p.parseDeclarations(parser, css.EndRulesetGrammar)
			sheet.Items = append(sheet.Items, StylesheetItem{Rule: &Rule{Selector: selector, Declarations: decls}})
		}
	}
}

// ParseInline parses content of style attribute.
func (p *Parser) ParseInline(data []byte) []Declaration {
	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), true)
	var decls []Declaration
	for {
		gt, _, data := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			return decls
		case css.DeclarationGrammar:
			if values := parser.Values(); len(values) > 0 {
				decls = append(decls, Declaration{Property: strings.ToLower(string(data)), Raw: joinTokens(values)})
			}
		}
	}
}

// extractImportURL extracts the URL from @import tokens.
// Handles: @import "url"; @import url("url"); @import url(url);
func extractImportURL(tokens []css.Token) string {
	for _, t := range tokens {
		switch t.TokenType {
		case css.StringToken:
			return unquote(string(t.Data))
		case css.URLToken:
			if urls := URLsIn(string(t.Data)); len(urls) > 0 {
				return urls[0]
			}
		}
	}
	return ""
}

// joinTokens builds raw value collapsing whitespace runs.
func joinTokens(tokens []css.Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		if t.TokenType == css.WhitespaceToken {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			continue
		}
		sb.Write(t.Data)
	}
	return strings.TrimSpace(sb.String())
}

// selectorOf builds selector text of a ruleset.
func selectorOf(data []byte, values []css.Token) string {
	return strings.TrimSpace(strings.Trim(string(data)+joinTokens(values), "{"))
}

// parseDeclarations collects declarations until end grammar.
func (p *Parser) parseDeclarations(parser *css.Parser, end css.GrammarType) []Declaration {
	var decls []Declaration
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar, end:
			return decls

		case css.DeclarationGrammar:
			if values := parser.Values(); len(values) > 0 {
				decls = append(decls, Declaration{Property: strings.ToLower(string(data)), Raw: joinTokens(values)})
			}

		case css.CustomPropertyGrammar:
			continue
		}
	}
}

// parseBlockRules parses rules inside @media-like block.
func (p *Parser) parseBlockRules(parser *css.Parser) []Rule {
	var rules []Rule
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar, css.EndAtRuleGrammar:
			return rules

		case css.BeginAtRuleGrammar:
			// nested blocks are flattened
			rules = append(rules, p.parseBlockRules(parser)...)

		case css.BeginRulesetGrammar:
			selector := selectorOf(data, parser.Values())
			rules = append(rules, Rule{Selector: selector, Declarations: p.parseDeclarations(parser, css.EndRulesetGrammar)})
		}
	}
}

// skipAtRuleBlock skips tokens until the matching end of an @-rule block.
func (p *Parser) skipAtRuleBlock(parser *css.Parser) {
	depth := 1
	for depth > 0 {
		gt, _, _ := parser.Next()
		switch gt {
		case css.ErrorGrammar:
			return
		case css.BeginAtRuleGrammar, css.BeginRulesetGrammar:
			depth++
		case css.EndAtRuleGrammar, css.EndRulesetGrammar:
			depth--
		}
	}
}

// unquote removes surrounding quotes from a string.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return s
	}
	if (s[0] == '"' && s[len(s)-1] == '"') ||
		(s[0] == '\'' && s[len(s)-1] == '\'') {
		return s[1 : len(s)-1]
	}
	return s
}
