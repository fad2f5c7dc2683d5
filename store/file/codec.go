package file

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/xraph/membership/event"
	mstore "github.com/xraph/membership/store"
	"github.com/xraph/membership/tier"
)

// formatVersion is bumped when the snapshot layout changes.
const formatVersion = 1

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// Ids serialize through MarshalText.
	encOptions.TextMarshaler = cbor.TextMarshalerTextString
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("file: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("file: CBOR decoder initialization failed: " + err.Error())
	}
}

var errChecksum = errors.New("checksum mismatch")

// envelope is the on-disk frame around an encoded snapshot.
type envelope struct {
	Version  int    `cbor:"v"`
	Checksum []byte `cbor:"sum"`
	Body     []byte `cbor:"body"`
}

// contents is everything the file store persists.
type contents struct {
	Settings *mstore.Settings      `cbor:"settings"`
	Tiers    []*tier.Tier          `cbor:"tiers"`
	Tokens   []*mstore.TokenRecord `cbor:"tokens"`
	Events   []*event.Event        `cbor:"events"`
}

func encode(c *contents) ([]byte, error) {
	body, err := encMode.Marshal(c)
	if err != nil {
		return nil, err
	}
	sum := blake3.Sum256(body)
	return encMode.Marshal(envelope{Version: formatVersion, Checksum: sum[:], Body: body})
}

func decode(data []byte) (*contents, error) {
	var env envelope
	if err := decMode.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Version != formatVersion {
		return nil, fmt.Errorf("unsupported format version %d", env.Version)
	}
	sum := blake3.Sum256(env.Body)
	if !bytes.Equal(sum[:], env.Checksum) {
		return nil, errChecksum
	}

	c := new(contents)
	if err := decMode.Unmarshal(env.Body, c); err != nil {
		return nil, err
	}
	return c, nil
}
