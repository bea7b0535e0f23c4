package llm

import (
	"bytes"

	"assessment-relay/internal/domain"
)

// Reply is a decoded provider reply.
type Reply struct {
	Text  string
	Usage domain.Usage
	Model string
}

type replyDecoder struct {
	name   string
	decode func(raw []byte) (Reply, bool)
}

// replyDecoders are tried in order; the first match wins.
var replyDecoders = []replyDecoder{
	{name: ProviderAnthropic, decode: decodeAnthropic},
	{name: ProviderOpenAI, decode: decodeOpenAI},
}

// DecodeReply decodes raw against each known provider response schema.
// An unmatched payload yields *UnrecognizedReplyError.
func DecodeReply(raw []byte) (Reply, error) {
	for _, d := range replyDecoders {
		if reply, ok := d.decode(raw); ok {
			return reply, nil
		}
	}
	return Reply{}, &UnrecognizedReplyError{Raw: truncate(string(raw), 4096)}
}

func isJSONArray(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
