package toolrunner

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// hasShellMetacharacters reports whether raw needs a shell interpreter to
// execute faithfully: pipes, boolean/sequencing operators, redirects,
// heredocs, command substitution, or backticks.
func hasShellMetacharacters(raw string) bool {
	for _, tok := range []string{"|", "&&", "||", ";", ">", "<", "$(", "`"} {
		if strings.Contains(raw, tok) {
			return true
		}
	}
	return false
}

// extractCommandNames derives the command names that would actually run if
// raw were executed by a shell: split
// on |, &&, ||, ; respecting quoting; drop leading VAR=value assignments;
// drop redirect operators and targets; strip surrounding parentheses.
//
// Rather than hand-rolling that derivation with a tokenizer, this parses
// raw with mvdan.cc/sh/v3/syntax: the parser already separates redirects,
// heredoc bodies, and assignments from a CallExpr's Args, and walks into
// subshells and command substitutions, so the derived view falls out of
// the AST instead of a second hand-written grammar that could disagree
// with the one actually used to execute the command.
func extractCommandNames(raw string) ([]string, error) {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash), syntax.KeepComments(false))
	file, err := parser.Parse(strings.NewReader(raw), "")
	if err != nil {
		return nil, fmt.Errorf("toolrunner: parse command: %w", err)
	}

	var names []string
	syntax.Walk(file, func(node syntax.Node) bool {
		call, ok := node.(*syntax.CallExpr)
		if !ok || len(call.Args) == 0 {
			return true
		}
		name := wordToString(call.Args[0])
		if name != "" {
			names = append(names, name)
		}
		return true
	})
	return names, nil
}

// wordToString flattens a syntax.Word's literal content; parameter and
// command substitutions are rendered as placeholders since their actual
// value is not known until the shell runs them — they never count as a
// command name on their own.
func wordToString(word *syntax.Word) string {
	var sb strings.Builder
	for _, part := range word.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, qp := range p.Parts {
				if lit, ok := qp.(*syntax.Lit); ok {
					sb.WriteString(lit.Value)
				}
			}
		case *syntax.ParamExp:
			sb.WriteString("$" + p.Param.Value)
		case *syntax.CmdSubst:
			sb.WriteString("$()")
		}
	}
	return sb.String()
}
