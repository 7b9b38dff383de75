package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/KirkDiggler/cyber-arena/internal/engine/combat"
	"github.com/KirkDiggler/cyber-arena/internal/errors"
	"github.com/KirkDiggler/cyber-arena/internal/orchestrators/battle"
)

// terminal plays a battle session on a text console. Session log lines are
// printed as the controller reports them.
type terminal struct {
	out     io.Writer
	lines   chan string
	changed chan struct{}

	mu      sync.Mutex
	printed int
}

func newTerminal(in io.Reader, out io.Writer) *terminal {
	t := &terminal{
		out:     out,
		lines:   make(chan string),
		changed: make(chan struct{}, 1),
	}
	go func() {
		defer close(t.lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			t.lines <- strings.TrimSpace(scanner.Text())
		}
	}()
	return t
}

// observe is the controller's observer
func (t *terminal) observe(s battle.Session) {
	t.mu.Lock()
	for _, entry := range s.Log[min(t.printed, len(s.Log)):] {
		fmt.Fprintf(t.out, "  > %s\n", entry.Text)
	}
	t.printed = len(s.Log)
	t.mu.Unlock()

	select {
	case t.changed <- struct{}{}:
	default:
	}
}

func (t *terminal) wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.changed:
		return nil
	}
}

// read waits for a line until the deadline; a zero deadline waits forever
func (t *terminal) read(ctx context.Context, deadline time.Time) (string, bool, error) {
	var expired <-chan time.Time
	if !deadline.IsZero() {
		timer := time.NewTimer(time.Until(deadline))
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-ctx.Done():
		return "", false, ctx.Err()
	case <-expired:
		return "", false, nil
	case line, ok := <-t.lines:
		if !ok {
			return "", false, io.EOF
		}
		return line, true, nil
	}
}

// play runs the session until it ends. creator enables starting an online
// room once an opponent joined.
func (t *terminal) play(ctx context.Context, c *battle.Controller, creator bool) error {
	for {
		snap := c.Snapshot()
		switch {
		case snap.Phase == battle.PhaseEnded:
			fmt.Fprintf(t.out, "\n=== %s ===\n", strings.ToUpper(string(snap.Result)))
			return nil

		case snap.Phase == battle.PhaseMyTurn:
			t.status(snap)
			fmt.Fprint(t.out, "[a]ttack, [h]eal or [q]uit: ")
			line, _, err := t.read(ctx, time.Time{})
			if err != nil {
				return t.leave(ctx, c, err)
			}
			switch line {
			case "a", "attack":
				t.act(ctx, c, combat.ActionAttack)
			case "h", "heal":
				t.act(ctx, c, combat.ActionHeal)
			case "q", "quit":
				return c.Leave(ctx)
			}

		case snap.Phase == battle.PhaseAwaitingOpponent && creator && snap.Opponent.Name != "":
			fmt.Fprintf(t.out, "%s is here. Press enter to start, [q] to quit: ", snap.Opponent.Name)
			line, _, err := t.read(ctx, time.Time{})
			if err != nil {
				return t.leave(ctx, c, err)
			}
			if line == "q" {
				return c.Leave(ctx)
			}
			if err := c.StartGame(ctx); err != nil {
				fmt.Fprintf(t.out, "Cannot start: %s\n", errors.GetMessage(err))
			}

		default:
			if err := t.wait(ctx); err != nil {
				return t.leave(ctx, c, err)
			}
		}
	}
}

func (t *terminal) leave(ctx context.Context, c *battle.Controller, cause error) error {
	_ = c.Leave(context.WithoutCancel(ctx))
	if cause == io.EOF || errors.Is(cause, context.Canceled) {
		return nil
	}
	return cause
}

func (t *terminal) act(ctx context.Context, c *battle.Controller, kind combat.ActionKind) {
	pending, err := c.BeginAction(ctx, kind)
	if err != nil {
		fmt.Fprintf(t.out, "Cannot %s: %s\n", kind, errors.GetMessage(err))
		return
	}

	q := pending.Question
	fmt.Fprintf(t.out, "\n%s (%s left)\n", q.Prompt, time.Until(pending.Deadline).Round(time.Second))
	for i, choice := range q.Choices {
		fmt.Fprintf(t.out, "  [%d] %s\n", i, choice)
	}
	fmt.Fprint(t.out, "Answer: ")

	answer, ok, err := t.read(ctx, pending.Deadline)
	if err != nil || !ok {
		fmt.Fprintln(t.out)
		return
	}
	if _, err := c.SubmitAnswer(ctx, answer); err != nil {
		if errors.IsFailedPrecondition(err) {
			fmt.Fprintln(t.out, "Too late!")
			return
		}
		fmt.Fprintf(t.out, "Action failed: %s\n", errors.GetMessage(err))
	}
}

func (t *terminal) status(s battle.Session) {
	p, o := s.Player, s.Opponent
	fmt.Fprintf(t.out, "\n%s (L%d) HP %d/%d MP %d/%d  vs  %s (L%d) HP %d/%d\n",
		p.Name, p.Level, p.Health, p.MaxHealth, p.Mana, p.MaxMana,
		o.Name, o.Level, o.Health, o.MaxHealth)
	if a := s.Arena; a != nil {
		fmt.Fprintf(t.out, "%s level %d, %d/%d defeated\n", a.Name, a.Level, a.Defeated, a.Required)
	}
}
