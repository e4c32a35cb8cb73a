package arenactl

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pterm/pterm"

	arenaservice "github.com/louisbranch/arena/internal/services/arena/api/grpc/arena"
	"github.com/louisbranch/arena/internal/services/arena/domain/identity"
)

func renderTable(data pterm.TableData) string {
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return fmt.Sprintf("render table: %v\n", err)
	}
	return out + "\n"
}

func renderKeyValues(rows [][2]string) string {
	data := pterm.TableData{{"field", "value"}}
	for _, row := range rows {
		data = append(data, []string{row[0], row[1]})
	}
	return renderTable(data)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func formatOptional(o identity.Optional) string {
	id, ok := o.Get()
	if !ok {
		return "-"
	}
	return id.Short()
}

func statusStyle(status string) string {
	switch status {
	case "open":
		return pterm.LightCyan(status)
	case "active":
		return pterm.LightYellow(status)
	case "over":
		return pterm.LightGreen(status)
	default:
		return pterm.Gray(status)
	}
}

func (c *cli) renderConfig(cfg arenaservice.Config) string {
	return renderKeyValues([][2]string{
		{"authority", string(cfg.Authority)},
		{"currency", cfg.Currency},
		{"fee recipient", string(cfg.FeeRecipient)},
		{"fee rate", c.printer.Sprintf("%d bps", cfg.FeeRateBps)},
		{"initialized at", formatTime(cfg.InitializedAt)},
	})
}

func (c *cli) renderAccount(acct arenaservice.Account) string {
	owner := string(acct.Owner)
	if owner == "" {
		owner = "-"
	}
	return renderKeyValues([][2]string{
		{"account", acct.ID},
		{"kind", acct.Kind},
		{"owner", owner},
		{"balance", c.amount(acct.Balance) + " " + acct.Currency},
		{"updated at", formatTime(acct.UpdatedAt)},
	})
}

func (c *cli) renderSession(s arenaservice.Session) string {
	return renderKeyValues([][2]string{
		{"session", s.ID},
		{"status", statusStyle(s.Status)},
		{"creator", string(s.Creator)},
		{"player", s.Player.String()},
		{"health", fmt.Sprintf("%d / %d (of %d)", s.CreatorHealth, s.PlayerHealth, s.TotalHealth)},
		{"rounds resolved", strconv.FormatUint(uint64(s.Round), 10)},
		{"waiting on", waitingOn(s)},
		{"pool", c.amount(s.PoolAmount)},
		{"vault", s.Vault + " (" + c.amount(s.VaultBalance) + ")"},
		{"deadline", formatTime(s.Deadline)},
		{"winner", s.Winner.String()},
	})
}

func waitingOn(s arenaservice.Session) string {
	switch {
	case s.Winner.IsSet():
		return "-"
	case !s.Player.IsSet():
		return "opponent"
	case s.CreatorCanPlay && s.PlayerCanPlay:
		return "both"
	case s.CreatorCanPlay:
		return "creator"
	case s.PlayerCanPlay:
		return "player"
	default:
		return "resolve"
	}
}

func (c *cli) renderSessions(sessions []arenaservice.Session) string {
	if len(sessions) == 0 {
		return pterm.Info.Sprintln("no sessions")
	}
	data := pterm.TableData{{"session", "status", "creator", "player", "health", "pool", "round", "created"}}
	for _, s := range sessions {
		data = append(data, []string{
			s.ID,
			statusStyle(s.Status),
			s.Creator.Short(),
			formatOptional(s.Player),
			fmt.Sprintf("%d/%d", s.CreatorHealth, s.PlayerHealth),
			c.amount(s.PoolAmount),
			strconv.FormatUint(uint64(s.Round), 10),
			formatTime(s.CreatedAt),
		})
	}
	return renderTable(data)
}

func (c *cli) renderRound(resp *arenaservice.RoundResponse) string {
	out := pterm.Success.Sprintfln("round %d resolved: %s", resp.Round.Number, resp.Round.Outcome)
	if resp.Round.Forced {
		out = pterm.Warning.Sprintfln("round %d forced after timeout: %s", resp.Round.Number, resp.Round.Outcome)
	}
	out += renderKeyValues([][2]string{
		{"creator move", resp.Round.CreatorMove.String()},
		{"player move", resp.Round.PlayerMove.String()},
		{"health", fmt.Sprintf("%d / %d", resp.Round.CreatorHealth, resp.Round.PlayerHealth)},
		{"winner", resp.Session.Winner.String()},
	})
	return out
}

func renderEvents(events []arenaservice.Event) string {
	if len(events) == 0 {
		return pterm.Info.Sprintln("no events")
	}
	data := pterm.TableData{{"position", "stream", "seq", "type", "actor", "request", "at"}}
	for _, evt := range events {
		actor := "-"
		if evt.ActorID != "" {
			actor = identity.ID(evt.ActorID).Short()
		}
		data = append(data, []string{
			strconv.FormatInt(evt.Position, 10),
			evt.StreamID,
			strconv.FormatUint(evt.Seq, 10),
			evt.Type,
			actor,
			evt.RequestID,
			formatTime(evt.Timestamp),
		})
	}
	return renderTable(data)
}
