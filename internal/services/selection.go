package services

// Selection 勾选集合，key 为行 ID
type Selection map[string]bool

// NewSelection 由 ID 列表构造
func NewSelection(ids ...string) Selection {
	s := make(Selection, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}

// IDs 按 order 的顺序返回已勾选的 ID
func (s Selection) IDs(order []string) []string {
	out := make([]string, 0, len(s))
	for _, id := range order {
		if s[id] {
			out = append(out, id)
		}
	}
	return out
}

// AllSelected candidates 为空时视为未全选
func (s Selection) AllSelected(candidates []string) bool {
	if len(candidates) == 0 {
		return false
	}
	for _, id := range candidates {
		if !s[id] {
			return false
		}
	}
	return true
}

// ToggleAll 候选已全部勾选时清空，否则恰好勾选全部候选
func ToggleAll(candidates []string, current Selection) Selection {
	if current.AllSelected(candidates) {
		return Selection{}
	}
	return NewSelection(candidates...)
}
