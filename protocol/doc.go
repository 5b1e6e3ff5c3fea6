package protocol

// This package implements parsing and serialising of the JSON wire protocol
// the tracker server speaks over its TCP port.
//
// Every message, in either direction, is a single JSON object terminated by
// a newline:
//
//   ```
//     {"category":"tracker","request":"get","values":["version"]}
//     {"category":"tracker","request":"get","statuscode":200,"values":{"version":2}}
//   ```
//
// - `category`   - "tracker" for device state, "calibration" for the
//                  calibration sequence.
// - `request`    - the operation: get, set, start, pointstart, pointend,
//                  abort, clear.
// - `statuscode` - replies only. 200 is OK, 800/801/802 are unsolicited
//                  change notifications (calibration, display, tracker
//                  state), anything else is an error with an optional
//                  `description`.
// - `id`         - optional correlation id. Protocol generation 2 servers
//                  echo it back on the matching reply so the client can
//                  route replies to callers. Generation 1 knows nothing
//                  about ids, which is why the initial version probe must
//                  be sent untagged.
// - `values`     - command arguments (object or array of field names on
//                  get), or the reply payload.
//
// Replies to our own requests, error replies, and server-pushed change
// notifications all interleave on the one inbound stream. A notification
// carries a notification statuscode and no id; everything relevant to it is
// then refetched with an ordinary tagged get.
//
// The server never fragments a message, so one line is always one complete
// JSON object.
