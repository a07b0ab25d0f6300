package css

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses CSS stylesheets into ordered tree of rules.
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

// Parse parses CSS text into a Stylesheet. Recoverable syntax problems are
// reported in Stylesheet.Warnings, anything else stops parsing and is
// returned as error.
// The optional source parameter identifies what's being parsed (for debug logging).
func (p *Parser) Parse(data []byte, source ...string) (*Stylesheet, error) {
	sheet := NewStylesheet()

	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing CSS", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	input := parse.NewInput(bytes.NewReader(data))
	parser := css.NewParser(input, false)

	if err := p.parseBlock(parser, sheet, nil, sheet); err != nil {
		return sheet, fmt.Errorf("unable to parse css: %w", err)
	}
	p.log.Debug("Parsed CSS", zap.Int("nodes", len(sheet.nodes.items)), zap.Int("warnings", len(sheet.Warnings)))
	return sheet, nil
}

// parseBlock reads nodes into container until the end of the enclosing
// at-rule block (or end of input for the stylesheet itself). When at is not
// nil it receives declarations found directly in the block (@font-face, @page).
func (p *Parser) parseBlock(parser *css.Parser, c Container, at *AtRule, sheet *Stylesheet) error {
	var selectors []string

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if parser.HasParseError() {
				p.warn(sheet, "skipping malformed css", parser.Err())
				continue
			}
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			if at != nil {
				sheet.Warnings = append(sheet.Warnings, "unterminated @"+at.Name+" block")
			}
			return nil

		case css.EndAtRuleGrammar:
			if at != nil {
				return nil
			}

		case css.CommentGrammar:
			c.Append(&Comment{Text: string(data)})

		case css.AtRuleGrammar:
			// Simple @-rule without block (e.g., @import, @charset)
			a := NewAtRule(string(data), joinPrelude(parser.Values()), false)
			c.Append(a)
			p.log.Debug("Parsed @-rule", zap.String("rule", a.Name), zap.String("prelude", a.Prelude))

		case css.BeginAtRuleGrammar:
			a := NewAtRule(string(data), joinPrelude(parser.Values()), true)
			c.Append(a)
			if err := p.parseBlock(parser, a, a, sheet); err != nil {
				return err
			}
			p.log.Debug("Parsed @-rule block", zap.String("rule", a.Name), zap.String("prelude", a.Prelude), zap.Int("nodes", len(a.nodes.items)))

		case css.QualifiedRuleGrammar:
			// selector followed by comma, the rest of the list comes with BeginRulesetGrammar
			selectors = append(selectors, splitSelectors(data, parser.Values())...)

		case css.BeginRulesetGrammar:
			selectors = append(selectors, splitSelectors(data, parser.Values())...)
			rule := NewRule(selectors)
			selectors = nil
			c.Append(rule)
			if err := p.parseDeclarations(parser, rule, sheet); err != nil {
				return err
			}

		case css.TokenGrammar:
			// body of an at-rule the grammar does not know, kept verbatim
			if at != nil {
				at.Raw += string(data)
			}

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			if at == nil {
				sheet.Warnings = append(sheet.Warnings, "declaration outside of a rule: "+string(data))
				p.log.Debug("Skipping stray declaration", zap.ByteString("property", data))
				continue
			}
			at.Declarations = append(at.Declarations, newDeclaration(data, parser.Values()))
		}
	}
}

// parseDeclarations parses property declarations until EndRulesetGrammar.
func (p *Parser) parseDeclarations(parser *css.Parser, rule *Rule, sheet *Stylesheet) error {
	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			if parser.HasParseError() {
				p.warn(sheet, "skipping malformed declaration in "+rule.Selector(), parser.Err())
				continue
			}
			if err := parser.Err(); err != nil && !errors.Is(err, io.EOF) {
				return err
			}
			sheet.Warnings = append(sheet.Warnings, "unterminated rule: "+rule.Selector())
			return nil

		case css.EndRulesetGrammar:
			return nil

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			rule.Append(newDeclaration(data, parser.Values()))
		}
	}
}

func (p *Parser) warn(sheet *Stylesheet, msg string, err error) {
	if err != nil {
		msg += ": " + err.Error()
	}
	sheet.Warnings = append(sheet.Warnings, msg)
	p.log.Debug("CSS parse error", zap.String("details", msg))
}

// newDeclaration converts property name and value tokens to a Declaration,
// trailing !important is moved to the flag.
func newDeclaration(name []byte, tokens []css.Token) *Declaration {
	d := &Declaration{Property: string(name)}
	if !bytes.HasPrefix(name, []byte("--")) {
		d.Property = strings.ToLower(d.Property)
	}
	tokens, d.Important = cutImportant(tokens)
	d.Value = joinTokens(tokens)
	return d
}

func cutImportant(tokens []css.Token) ([]css.Token, bool) {
	i := lastSignificant(tokens, len(tokens))
	if i < 0 || tokens[i].TokenType != css.IdentToken || !strings.EqualFold(string(tokens[i].Data), "important") {
		return tokens, false
	}
	j := lastSignificant(tokens, i)
	if j < 0 || tokens[j].TokenType != css.DelimToken || string(tokens[j].Data) != "!" {
		return tokens, false
	}
	return tokens[:j], true
}

// lastSignificant returns index of last non whitespace token before end.
func lastSignificant(tokens []css.Token, end int) int {
	for i := end - 1; i >= 0; i-- {
		if tokens[i].TokenType != css.WhitespaceToken && tokens[i].TokenType != css.CommentToken {
			return i
		}
	}
	return -1
}

// joinTokens builds raw value string collapsing whitespace runs to a single space.
func joinTokens(tokens []css.Token) string {
	var sb strings.Builder
	pendingSpace := false
	for _, t := range tokens {
		switch t.TokenType {
		case css.WhitespaceToken:
			pendingSpace = sb.Len() > 0
		case css.CommentToken:
			continue
		default:
			if pendingSpace {
				sb.WriteByte(' ')
				pendingSpace = false
			}
			if t.TokenType == css.CustomPropertyValueToken {
				sb.WriteString(strings.TrimSpace(string(t.Data)))
				continue
			}
			sb.Write(t.Data)
		}
	}
	return sb.String()
}

// joinPrelude is joinTokens for at-rule preludes. Grammar parser drops
// whitespace inside parentheses and after commas, so a space is restored
// after commas and after colons of media features: "(max-width: 100px)".
// Colons inside functions such as selector(a:hover) stay as they are.
func joinPrelude(tokens []css.Token) string {
	var (
		sb           strings.Builder
		groups       []css.TokenType
		pendingSpace bool
	)
	for _, t := range tokens {
		switch t.TokenType {
		case css.WhitespaceToken:
			pendingSpace = sb.Len() > 0
			continue
		case css.CommentToken:
			continue
		case css.RightParenthesisToken, css.RightBracketToken:
			pendingSpace = false
		}
		if pendingSpace {
			sb.WriteByte(' ')
			pendingSpace = false
		}
		sb.Write(t.Data)

		switch t.TokenType {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			groups = append(groups, t.TokenType)
		case css.RightParenthesisToken, css.RightBracketToken:
			if len(groups) > 0 {
				groups = groups[:len(groups)-1]
			}
		case css.CommaToken:
			pendingSpace = true
		case css.ColonToken:
			pendingSpace = len(groups) > 0 && groups[len(groups)-1] == css.LeftParenthesisToken
		}
	}
	return sb.String()
}

// splitSelectors extracts selector strings from token data.
func splitSelectors(data []byte, values []css.Token) []string {
	tokens := make([]css.Token, 0, len(values)+1)
	if len(data) > 0 {
		tokens = append(tokens, css.Token{TokenType: css.IdentToken, Data: data})
	}
	tokens = append(tokens, values...)

	// Split by top level commas for grouped selectors, :is(a, b) stays intact
	var selectors []string
	flush := func(part []css.Token) {
		if s := strings.TrimSpace(joinTokens(part)); s != "" {
			selectors = append(selectors, s)
		}
	}
	depth, start := 0, 0
	for i, t := range tokens {
		switch t.TokenType {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			depth--
		case css.CommaToken:
			if depth == 0 {
				flush(tokens[start:i])
				start = i + 1
			}
		}
	}
	flush(tokens[start:])
	return selectors
}
