package search

import "github.com/redis/go-redis/v9"

// patchScript applies absolute count values to a JSON document and advances
// its event metadata in one server-side step, so the business fields and the
// idempotency metadata can never diverge. ARGV[1] is the event id, ARGV[2]
// the event timestamp in epoch millis, followed by field/value pairs.
//
// Returns "missing" when no document exists, "duplicate" when the event id was
// already the last applied one, otherwise the updated document JSON.
var patchScript = redis.NewScript(`
local raw = redis.call('GET', KEYS[1])
if not raw then
  return 'missing'
end
local doc = cjson.decode(raw)
if doc.lastEventId == ARGV[1] then
  return 'duplicate'
end
for i = 3, #ARGV - 1, 2 do
  doc[ARGV[i]] = tonumber(ARGV[i + 1])
end
doc.version = (doc.version or 0) + 1
doc.eventCount = (doc.eventCount or 0) + 1
doc.lastEventId = ARGV[1]
doc.lastEventTimestamp = tonumber(ARGV[2])
raw = cjson.encode(doc)
redis.call('SET', KEYS[1], raw)
return raw
`)
