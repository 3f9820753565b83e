package engine

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/remedystack/remedy-engine/internal/models"
)

// DecisionChannel is the synchronous decision point in front of execution.
// Implementations block until a decision is made.
type DecisionChannel interface {
	RequestDecision(action models.ResolvedAction) (models.ApprovalDecision, error)
}

// Gate validates actions and routes them through a decision channel. A
// configured timeout is advisory only: it is logged, never enforced.
type Gate struct {
	channel         DecisionChannel
	advisoryTimeout time.Duration
	logger          *slog.Logger
}

// NewGate constructs an approval gate in front of channel.
func NewGate(channel DecisionChannel, advisoryTimeout time.Duration, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{channel: channel, advisoryTimeout: advisoryTimeout, logger: logger}
}

// Decide returns exactly one decision for action. Malformed actions are
// rejected without prompting.
func (g *Gate) Decide(action models.ResolvedAction) models.ApprovalDecision {
	if action.ActionID == "" || !models.KnownKind(action.Kind) {
		return models.ApprovalDecision{
			ActionID:  action.ActionID,
			Status:    models.ApprovalErrInvalidInput,
			Timestamp: time.Now().UTC(),
		}
	}
	if g.advisoryTimeout > 0 {
		g.logger.Debug("approval timeout is advisory, not enforced", slog.Duration("timeout", g.advisoryTimeout))
	}
	if g.channel == nil {
		return models.ApprovalDecision{
			ActionID:  action.ActionID,
			Status:    models.ApprovalErrPromptFailed,
			Timestamp: time.Now().UTC(),
		}
	}
	decision, err := g.channel.RequestDecision(action)
	if err != nil {
		g.logger.Error("decision channel failed", slog.String("action", action.ActionID), slog.Any("error", err))
		return models.ApprovalDecision{
			ActionID:  action.ActionID,
			Status:    models.ApprovalErrPromptFailed,
			Timestamp: time.Now().UTC(),
		}
	}
	return decision
}

// AutoChannel approves every action; used for unattended Automatic mode.
type AutoChannel struct {
	Approver string
}

// RequestDecision always approves.
func (a AutoChannel) RequestDecision(action models.ResolvedAction) (models.ApprovalDecision, error) {
	approver := a.Approver
	if approver == "" {
		approver = "automatic"
	}
	return models.ApprovalDecision{
		ActionID:  action.ActionID,
		Status:    models.ApprovalApproved,
		Timestamp: time.Now().UTC(),
		Approver:  approver,
	}, nil
}

// ConsoleChannel prompts an operator over a line-oriented reader/writer
// pair. Empty input denies; invalid input reprompts; [d]etails prints the
// full action and reprompts.
type ConsoleChannel struct {
	In       io.Reader
	Out      io.Writer
	Approver string

	// reader wraps In once so type-ahead buffered past one answer
	// survives to the next decision.
	reader *bufio.Reader
}

// RequestDecision blocks until the operator answers approve, deny or quit.
func (c *ConsoleChannel) RequestDecision(action models.ResolvedAction) (models.ApprovalDecision, error) {
	if c.reader == nil {
		c.reader = bufio.NewReader(c.In)
	}
	reader := c.reader
	c.printSummary(action)

	for {
		fmt.Fprintf(c.Out, "[a]pprove / [n]o / [d]etails / [q]uit (empty = deny): ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return models.ApprovalDecision{}, fmt.Errorf("read decision: %w", err)
		}
		answer := strings.ToLower(strings.TrimSpace(line))

		switch answer {
		case "", "n", "no", "deny":
			return c.decision(action, models.ApprovalDenied), nil
		case "a", "y", "yes", "approve":
			return c.decision(action, models.ApprovalApproved), nil
		case "q", "quit":
			return c.decision(action, models.ApprovalUserQuit), nil
		case "d", "details":
			c.printDetails(action)
		default:
			fmt.Fprintf(c.Out, "unrecognized input %q\n", answer)
		}
		if err != nil {
			// Reader is exhausted; a trailing unterminated line was the
			// last input we will ever see.
			return models.ApprovalDecision{}, fmt.Errorf("read decision: %w", err)
		}
	}
}

func (c *ConsoleChannel) decision(action models.ResolvedAction, status models.ApprovalStatus) models.ApprovalDecision {
	approver := c.Approver
	if approver == "" {
		approver = "console"
	}
	return models.ApprovalDecision{
		ActionID:  action.ActionID,
		Status:    status,
		Timestamp: time.Now().UTC(),
		Approver:  approver,
	}
}

func (c *ConsoleChannel) printSummary(action models.ResolvedAction) {
	fmt.Fprintf(c.Out, "\nProposed action %s: %s\n", action.ActionID, action.Title)
	fmt.Fprintf(c.Out, "  kind=%s target=%s impact=%s\n", action.Kind, action.Target, action.Impact)
}

func (c *ConsoleChannel) printDetails(action models.ResolvedAction) {
	fmt.Fprintf(c.Out, "Description: %s\n", action.Description)
	fmt.Fprintf(c.Out, "Success criteria: %s\n", action.SuccessCriteria)
	keys := make([]string, 0, len(action.Parameters))
	for k := range action.Parameters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(c.Out, "  %s = %s\n", k, action.Parameters[k])
	}
}
