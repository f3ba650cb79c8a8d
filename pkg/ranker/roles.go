package ranker

import (
	"strings"

	"github.com/swarmrouter/core/pkg/models"
)

const (
	maxStackEntries     = 10
	maxGuardrailEntries = 6
)

// ComposeRole assembles the fixed-shape role-enriched prompt of §6.5. A
// request that resolves to nothing (role is nil or every field empty)
// returns the raw task. Composition failure is handled by the caller
// falling back to the raw task (§4.2).
func ComposeRole(task string, role *models.RoleConfig) string {
	if role == nil || isEmptyRole(role) {
		return task
	}

	var sb strings.Builder

	if role.Persona != "" {
		sb.WriteString("## Role: ")
		sb.WriteString(role.Persona)
		sb.WriteString("\n")
	}

	if len(role.Stack) > 0 {
		sb.WriteString("### Stack\n")
		for _, s := range capList(role.Stack, maxStackEntries) {
			sb.WriteString("- ")
			sb.WriteString(s)
			sb.WriteString("\n")
		}
	}

	if role.Domain != "" {
		sb.WriteString("### Domain\n- ")
		sb.WriteString(role.Domain)
		sb.WriteString("\n")
	}

	if role.Format != "" {
		sb.WriteString("### Output\n- ")
		sb.WriteString(role.Format)
		sb.WriteString("\n")
	}

	if len(role.Guardrails) > 0 {
		sb.WriteString("### Rules\n")
		for _, g := range capList(role.Guardrails, maxGuardrailEntries) {
			sb.WriteString("- ")
			sb.WriteString(g)
			sb.WriteString("\n")
		}
	}

	if role.Format != "" {
		sb.WriteString("Style: ")
		sb.WriteString(role.Format)
		sb.WriteString("\n")
	}

	sb.WriteString("## Task\n")
	sb.WriteString(task)

	if sb.Len() == 0 {
		return task
	}
	return sb.String()
}

func isEmptyRole(r *models.RoleConfig) bool {
	return r.Persona == "" && len(r.Stack) == 0 && r.Domain == "" && r.Format == "" && len(r.Guardrails) == 0
}

func capList(items []string, max int) []string {
	if len(items) <= max {
		return items
	}
	return items[:max]
}
