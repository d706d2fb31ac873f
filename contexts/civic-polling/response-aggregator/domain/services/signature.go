package services

import (
	"encoding/binary"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/cryptomx1/truth-unveiled-dao-sub004/contexts/civic-polling/response-aggregator/domain/entities"
)

// SigningPayload is the canonical byte form a response signature covers.
// Fields are length-prefixed; selections are sorted so their order does not
// change the payload.
func SigningPayload(response entities.PollResponse) []byte {
	selected := append([]string(nil), response.Selected...)
	sort.Strings(selected)

	var buf []byte
	put := func(value string) {
		var size [4]byte
		binary.BigEndian.PutUint32(size[:], uint32(len(value)))
		buf = append(buf, size[:]...)
		buf = append(buf, value...)
	}
	put("poll-response/v1")
	put(response.ResponseID)
	put(response.PollID)
	put(response.ResponderHash)
	put(string(response.Tier))
	var weight [8]byte
	binary.BigEndian.PutUint64(weight[:], math.Float64bits(response.Weight))
	buf = append(buf, weight[:]...)
	put(strings.Join(selected, "\x1f"))
	put(response.Comment)
	put(response.SubmittedAt.UTC().Format(time.RFC3339Nano))
	return buf
}
