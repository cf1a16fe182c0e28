package flow

import (
	"github.com/kislikjeka/memechain/internal/platform/chain"
)

// ExtractNotification returns the arguments of the first log in receipt that decodes as the
// named event. Logs that fail to decode are skipped.
func ExtractNotification(receipt *chain.Receipt, decoder chain.EventDecoder, name string) (map[string]any, bool) {
	if receipt == nil || decoder == nil {
		return nil, false
	}

	for _, log := range receipt.Logs {
		event, fields, err := decoder.DecodeEvent(log)
		if err != nil || event != name {
			continue
		}
		return fields, true
	}
	return nil, false
}
