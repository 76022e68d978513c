package notify

import "fmt"

// MessageLimit is the packing budget per outbound message. The transport's
// hard cap is 1600 characters; 1500 leaves room for part markers.
const MessageLimit = 1500

// Batch packs pre-rendered entry blocks into one or more messages of at most
// MessageLimit characters. The header goes on the first message only and the
// footer on the last; entry order is preserved across message boundaries.
// When more than one message results, each is prefixed with an "[i/N] " part
// marker, already accounted for in the budget. An entry that cannot fit in a
// message on its own is still emitted as its own (oversized) message rather
// than dropped or truncated.
func Batch(header string, entries []string, footer string) []string {
	if len(entries) == 0 {
		msg := header
		if footer != "" {
			msg += footer
		}
		if msg == "" {
			return nil
		}
		return []string{msg}
	}

	// Pack once without marker space; if that needs several messages, repack
	// reserving room for the widest marker until the count stops changing.
	groups := pack(header, entries, footer, 0)
	for len(groups) > 1 {
		reserve := len(fmt.Sprintf("[%d/%d] ", len(groups), len(groups)))
		repacked := pack(header, entries, footer, reserve)
		if len(repacked) == len(groups) {
			groups = repacked
			break
		}
		groups = repacked
	}

	messages := make([]string, 0, len(groups))
	for i, g := range groups {
		msg := ""
		if len(groups) > 1 {
			msg = fmt.Sprintf("[%d/%d] ", i+1, len(groups))
		}
		if i == 0 {
			msg += header
		}
		for _, e := range g {
			msg += e
		}
		if i == len(groups)-1 {
			msg += footer
		}
		messages = append(messages, msg)
	}
	return messages
}

// pack greedily groups entries so each group fits the limit. The header is
// charged to the first group; footer space is reserved in every group, which
// is slightly conservative but keeps the last group legal wherever it lands.
func pack(header string, entries []string, footer string, reserve int) [][]string {
	budget := MessageLimit - reserve - len(footer)

	var groups [][]string
	var current []string
	used := len(header)

	for _, e := range entries {
		if len(current) > 0 && used+len(e) > budget {
			groups = append(groups, current)
			current = nil
			used = 0
		}
		current = append(current, e)
		used += len(e)
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}
