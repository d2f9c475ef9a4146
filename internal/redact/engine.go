package redact

import (
	"strings"

	"github.com/cardguard/remediator/internal/config"
	"github.com/cardguard/remediator/internal/logger"
	"go.uber.org/zap"
)

// Engine applies the ordered pattern rules and the field-aware tabular pass
// to raw text. It performs no I/O; the orchestrator owns fetching and
// relocation.
type Engine struct {
	rules     []Rule
	fields    map[string]struct{}
	delimiter string
	logger    *logger.Logger
}

// New creates a redaction engine with the default rule table and the
// sensitive field set from configuration. Rules are compiled once here;
// Redact never mutates them.
func New(cfg config.RedactionConfig, log *logger.Logger) *Engine {
	fields := make(map[string]struct{}, len(cfg.SensitiveFields))
	for _, name := range cfg.SensitiveFields {
		fields[name] = struct{}{}
	}

	delimiter := cfg.Delimiter
	if delimiter == "" {
		delimiter = ","
	}

	engine := &Engine{
		rules:     DefaultRules(),
		fields:    fields,
		delimiter: delimiter,
		logger:    log,
	}

	log.Info("Redaction engine initialized",
		zap.Int("pattern_rules", len(engine.rules)),
		zap.Int("sensitive_fields", len(fields)),
	)

	return engine
}

// Redact applies every pattern rule across the whole text in table order,
// then redacts sensitive columns line by line. The first line is the
// header; blank lines are dropped; rows are truncated positionally to the
// shorter of header and row.
func (e *Engine) Redact(raw string) (Result, error) {
	if strings.TrimSpace(raw) == "" {
		return Result{}, &FormatError{Reason: "content is empty or not in the expected tabular format"}
	}

	// Pattern pass. Each rule rewrites the entire text before the next
	// rule runs, so a token consumed by an earlier mask can no longer
	// match a later rule.
	redacted := raw
	for _, rule := range e.rules {
		count := len(rule.Pattern.FindAllStringIndex(redacted, -1))
		if count == 0 {
			continue
		}
		redacted = rule.Pattern.ReplaceAllStringFunc(redacted, rule.Replace)
		e.logger.Debug("Pattern rule applied",
			zap.String("rule", rule.Name),
			zap.Int("matches", count),
		)
	}

	// Tabular field pass.
	lines := strings.Split(redacted, "\n")
	header := strings.Split(lines[0], e.delimiter)
	processed := make([]string, 0, len(lines))
	processed = append(processed, lines[0])

	rows := 0
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}

		values := strings.Split(line, e.delimiter)
		width := len(values)
		if len(header) < width {
			width = len(header)
		}

		out := make([]string, width)
		for i := 0; i < width; i++ {
			if _, sensitive := e.fields[header[i]]; sensitive {
				out[i] = "[REDACTED]"
			} else {
				out[i] = values[i]
			}
		}
		processed = append(processed, strings.Join(out, e.delimiter))
		rows++
	}

	e.logger.Debug("Tabular pass completed",
		zap.Int("columns", len(header)),
		zap.Int("rows_processed", rows),
	)

	return Result{
		Original:      raw,
		Redacted:      strings.Join(processed, "\n"),
		RowsProcessed: rows,
	}, nil
}
