package usecase

import "copywatch/internal/domain"

// AutoDismissalPolicy decides, per record, whether to silently auto-review
// instead of showing it to a human. The decision is pure; the auto-review
// write happens elsewhere.
type AutoDismissalPolicy struct {
	whitelist map[string]struct{}
}

// NewAutoDismissalPolicy builds a policy over the reviewer whitelist.
func NewAutoDismissalPolicy(whitelist map[string]struct{}) AutoDismissalPolicy {
	return AutoDismissalPolicy{whitelist: whitelist}
}

// Dismiss reports whether the record should be hidden from the feed. Two
// independent triggers, whitelist checked first, either alone sufficient:
// a whitelisted editor on the open filter, or a dead page on the open
// filter outside a permalink view.
func (p AutoDismissalPolicy) Dismiss(editor string, pageDead bool, view domain.ViewContext) bool {
	if view.Filter != domain.FilterOpen {
		return false
	}

	if editor != "" {
		if _, ok := p.whitelist[editor]; ok {
			return true
		}
	}

	return pageDead && !view.Permalink
}
