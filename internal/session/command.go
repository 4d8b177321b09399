package session

import (
	"github.com/codefionn/queryserverd/internal/protoerr"
	"github.com/codefionn/queryserverd/internal/term"
)

// CommandKind tags which of the six top-level commands spec.md §6 names
// a parsed payload resolved to.
type CommandKind int

const (
	CmdRun CommandKind = iota
	CmdRunAsync
	CmdAsyncResult
	CmdCancelAsync
	CmdClose
	CmdQuit
)

// Command is the parsed shape of one client frame payload, dispatched by
// the communication worker per spec.md §4.3.
type Command struct {
	Kind         CommandKind
	Goal         term.Term
	BindingNames []string
	Timeout      int
	FindAll      bool
}

// ParseCommand turns one frame payload into a Command. The payload is
// itself parsed as a single term whose functor/arity selects the
// command; the parser's returned variable-name list already contains
// only names occurring in Goal, since Timeout and FindAll are numeric
// and boolean literals.
func ParseCommand(parser *term.Parser, payload string) (Command, error) {
	t, names, err := parser.Parse(payload)
	if err != nil {
		return Command{}, protoerr.ErrCouldNotParseCommand
	}

	switch v := t.(type) {
	case term.Atom:
		switch string(v) {
		case "async_result":
			// spec.md §4.3: an absent timeout means wait forever, same as
			// async_result(-1); the original library always sends the
			// arity-1 form, but the bare atom is valid term syntax too.
			return Command{Kind: CmdAsyncResult, Timeout: -1}, nil
		case "cancel_async":
			return Command{Kind: CmdCancelAsync}, nil
		case "close":
			return Command{Kind: CmdClose}, nil
		case "quit":
			return Command{Kind: CmdQuit}, nil
		default:
			return Command{}, protoerr.ErrUnknownCommand
		}

	case term.Compound:
		switch {
		case v.Functor == "run" && len(v.Args) == 2:
			timeout, ok := asTimeout(v.Args[1])
			if !ok {
				return Command{}, protoerr.ErrCouldNotParseCommand
			}
			return Command{Kind: CmdRun, Goal: v.Args[0], BindingNames: names, Timeout: timeout, FindAll: true}, nil

		case v.Functor == "run_async" && len(v.Args) == 3:
			timeout, ok := asTimeout(v.Args[1])
			if !ok {
				return Command{}, protoerr.ErrCouldNotParseCommand
			}
			findAll, ok := v.Args[2].(term.Bool)
			if !ok {
				return Command{}, protoerr.ErrCouldNotParseCommand
			}
			return Command{Kind: CmdRunAsync, Goal: v.Args[0], BindingNames: names, Timeout: timeout, FindAll: bool(findAll)}, nil

		case v.Functor == "async_result" && len(v.Args) == 1:
			timeout, ok := asTimeout(v.Args[0])
			if !ok {
				return Command{}, protoerr.ErrCouldNotParseCommand
			}
			return Command{Kind: CmdAsyncResult, Timeout: timeout}, nil

		default:
			return Command{}, protoerr.ErrUnknownCommand
		}

	default:
		return Command{}, protoerr.ErrUnknownCommand
	}
}

func asTimeout(t term.Term) (int, bool) {
	i, ok := t.(term.Int)
	if !ok {
		return 0, false
	}
	return int(i), true
}
