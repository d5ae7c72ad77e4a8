package sparql

import (
	"github.com/roach88/quarry/internal/algebra"
	"github.com/roach88/quarry/internal/exprparser"
	"github.com/roach88/quarry/internal/lexer"
	"github.com/roach88/quarry/internal/rdf"
	"github.com/roach88/quarry/internal/update"
)

// ParseUpdate parses a sequence of update commands separated by
// semicolons. Each command may be preceded by BASE and PREFIX
// declarations, which stay in effect for the commands after it.
func (p *Parser) ParseUpdate(text string) ([]update.Command, error) {
	s, err := p.start(text)
	if err != nil {
		return nil, err
	}
	var cmds []update.Command
	for {
		if err := s.prologue(); err != nil {
			return nil, err
		}
		if _, ok := s.peek(); !ok {
			break
		}
		cmd, err := s.updateCommand()
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
		if !s.accept(lexer.Semicolon) {
			break
		}
	}
	if err := s.end(); err != nil {
		return nil, err
	}
	return cmds, nil
}

func (s *state) updateCommand() (update.Command, error) {
	tok, err := s.next("an update command")
	if err != nil {
		return nil, err
	}
	switch tok.Kind {
	case lexer.Load:
		return s.load()
	case lexer.Clear:
		silent := s.accept(lexer.Silent)
		target, err := s.target("a CLEAR command")
		if err != nil {
			return nil, err
		}
		return &update.Clear{Target: target, Silent: silent}, nil
	case lexer.Drop:
		silent := s.accept(lexer.Silent)
		target, err := s.target("a DROP command")
		if err != nil {
			return nil, err
		}
		return &update.Drop{Target: target, Silent: silent}, nil
	case lexer.Create:
		silent := s.accept(lexer.Silent)
		if _, err := s.expect(lexer.Graph, "a CREATE command"); err != nil {
			return nil, err
		}
		g, err := s.iri("a CREATE command")
		if err != nil {
			return nil, err
		}
		return &update.Create{Graph: g, Silent: silent}, nil
	case lexer.Insert:
		if s.accept(lexer.Data) {
			data, err := s.quads("an INSERT DATA command")
			if err != nil {
				return nil, err
			}
			return &update.InsertData{Data: *data}, nil
		}
		s.pos--
		return s.modify("")
	case lexer.Delete:
		if s.accept(lexer.Data) {
			data, err := s.quads("a DELETE DATA command")
			if err != nil {
				return nil, err
			}
			return &update.DeleteData{Data: *data}, nil
		}
		if s.accept(lexer.Where) {
			tmpl, err := s.quads("a DELETE WHERE command")
			if err != nil {
				return nil, err
			}
			return &update.Modify{Delete: tmpl, Where: patternOf(tmpl)}, nil
		}
		s.pos--
		return s.modify("")
	case lexer.With:
		g, err := s.iri("a WITH clause")
		if err != nil {
			return nil, err
		}
		return s.modify(g)
	}
	return nil, exprparser.Errorf(tok, "unexpected %s token, expected an update command", tok.Kind)
}

func (s *state) load() (update.Command, error) {
	cmd := &update.Load{Silent: s.accept(lexer.Silent)}
	src, err := s.iri("a LOAD command")
	if err != nil {
		return nil, err
	}
	cmd.Source = src
	if s.accept(lexer.Into) {
		if _, err := s.expect(lexer.Graph, "a LOAD command"); err != nil {
			return nil, err
		}
		if cmd.Into, err = s.iri("a LOAD command"); err != nil {
			return nil, err
		}
	}
	return cmd, nil
}

func (s *state) target(context string) (update.Target, error) {
	tok, err := s.next(context)
	if err != nil {
		return update.Target{}, err
	}
	switch tok.Kind {
	case lexer.Default:
		return update.Target{Kind: update.TargetDefault}, nil
	case lexer.Named:
		return update.Target{Kind: update.TargetNamed}, nil
	case lexer.All:
		return update.Target{Kind: update.TargetAll}, nil
	case lexer.Graph:
		g, err := s.iri(context)
		if err != nil {
			return update.Target{}, err
		}
		return update.Target{Kind: update.TargetGraph, Graph: g}, nil
	}
	return update.Target{}, exprparser.Errorf(tok, "unexpected %s token, expected GRAPH, DEFAULT, NAMED or ALL", tok.Kind)
}

// modify parses [DELETE {..}] [INSERT {..}] USING* WHERE {..}.
func (s *state) modify(with rdf.IRI) (update.Command, error) {
	cmd := &update.Modify{With: with}
	var err error
	if s.accept(lexer.Delete) {
		if cmd.Delete, err = s.quads("a DELETE clause"); err != nil {
			return nil, err
		}
	}
	if s.accept(lexer.Insert) {
		if cmd.Insert, err = s.quads("an INSERT clause"); err != nil {
			return nil, err
		}
	}
	if cmd.Delete == nil && cmd.Insert == nil {
		return nil, s.unexpected("a modify command, expected DELETE or INSERT")
	}
	for s.accept(lexer.Using) {
		named := s.accept(lexer.Named)
		g, err := s.iri("a USING clause")
		if err != nil {
			return nil, err
		}
		if named {
			cmd.UsingNamed = append(cmd.UsingNamed, g)
		} else {
			cmd.Using = append(cmd.Using, g)
		}
	}
	if _, err := s.expect(lexer.Where, "a modify command"); err != nil {
		return nil, err
	}
	if cmd.Where, err = s.groupGraphPattern(); err != nil {
		return nil, err
	}
	return cmd, nil
}

// quads parses { triples (GRAPH spec { triples })* }.
func (s *state) quads(context string) (*update.Template, error) {
	if _, err := s.expect(lexer.LeftCurlyBracket, context); err != nil {
		return nil, err
	}
	t := &update.Template{}
	for {
		switch s.kind() {
		case lexer.RightCurlyBracket:
			s.pos++
			return t, nil
		case lexer.Dot:
			s.pos++
		case lexer.Unknown:
			return nil, s.unexpected(context)
		case lexer.Graph:
			s.pos++
			spec, err := s.varOrIRI(context)
			if err != nil {
				return nil, err
			}
			inner, err := s.constructTemplate()
			if err != nil {
				return nil, err
			}
			t.Graphs = append(t.Graphs, update.GraphTemplate{Graph: spec, Triples: inner})
		default:
			ms, err := s.templateTriples()
			if err != nil {
				return nil, err
			}
			t.Default = append(t.Default, ms...)
		}
	}
}

// patternOf turns a DELETE WHERE template into its WHERE pattern.
func patternOf(t *update.Template) algebra.Node {
	var root algebra.Node = bgpOf(t.Default)
	for _, g := range t.Graphs {
		root = join(root, &algebra.Graph{Specifier: g.Graph, Inner: bgpOf(g.Triples)})
	}
	return root
}

func bgpOf(ms []*algebra.Match) *algebra.Bgp {
	b := algebra.NewBgp()
	for _, m := range ms {
		b.Patterns = append(b.Patterns, m)
	}
	return b
}
