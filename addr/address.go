package addr

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sigurn/crc16"
	"github.com/xssnick/tonutils-go/address"
)

// Address is a standard account address: workchain_id (1 byte) and account_id (32 byte).
// https://docs.ton.org/learn/overviews/addresses#user-friendly-address-structure
type Address [33]byte

const flagBounceable = 0x11

var (
	_ json.Marshaler   = (*Address)(nil)
	_ json.Unmarshaler = (*Address)(nil)
	_ fmt.Stringer     = (*Address)(nil)
)

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

func New(workchain int32, account []byte) (*Address, error) {
	if workchain < -128 || workchain > 127 {
		return nil, errors.Errorf("workchain %d does not fit into int8", workchain)
	}
	if len(account) != 32 {
		return nil, errors.Errorf("wrong account id length %d", len(account))
	}

	var x Address
	x[0] = byte(int8(workchain))
	copy(x[1:33], account)
	return &x, nil
}

func MustNew(workchain int32, account []byte) *Address {
	x, err := New(workchain, account)
	if err != nil {
		panic(err)
	}
	return x
}

func (x *Address) Workchain() int32 {
	return int32(int8(x[0]))
}

func (x *Address) AccountID() []byte {
	return append([]byte(nil), x[1:33]...)
}

func (x *Address) ToTonutils() *address.Address {
	return address.NewAddress(0, x[0], x.AccountID())
}

func (x *Address) checksum() uint16 {
	var xFlags [34]byte
	xFlags[0] = flagBounceable
	copy(xFlags[1:34], x[:])
	return crc16.Checksum(xFlags[:], crcTable)
}

// String returns raw form of the address, workchain:hex.
func (x *Address) String() string {
	return fmt.Sprintf("%d:%x", int8(x[0]), x[1:33])
}

// Base64 returns bounceable user-friendly form of the address.
func (x *Address) Base64() string {
	var xCheck [36]byte
	xCheck[0] = flagBounceable
	copy(xCheck[1:34], x[:])
	binary.BigEndian.PutUint16(xCheck[34:], x.checksum())
	return base64.RawURLEncoding.EncodeToString(xCheck[:])
}

func (x *Address) FromString(str string) (*Address, error) {
	split := strings.Split(str, ":")
	if len(split) != 2 {
		return nil, errors.New("wrong address format")
	}
	w, err := strconv.ParseInt(split[0], 10, 8)
	if err != nil {
		return nil, errors.Wrap(err, "parse address workchain int8")
	}
	d, err := hex.DecodeString(split[1])
	if err != nil {
		return nil, errors.Wrap(err, "parse address data hex")
	}
	a, err := New(int32(w), d)
	if err != nil {
		return nil, err
	}
	*x = *a
	return x, nil
}

func (x *Address) FromBase64(b64 string) (*Address, error) {
	d, err := base64.RawURLEncoding.DecodeString(b64)
	if err != nil {
		return nil, errors.Wrap(err, "decode base64")
	}
	if len(d) != 36 {
		return nil, errors.New("wrong decoded address length")
	}

	var a Address
	copy(a[0:33], d[1:34])
	if a.checksum() != binary.BigEndian.Uint16(d[34:36]) {
		return nil, errors.New("wrong address checksum")
	}

	*x = a
	return x, nil
}

// Parse accepts both raw and user-friendly forms.
func Parse(s string) (*Address, error) {
	if strings.Contains(s, ":") {
		return new(Address).FromString(s)
	}
	return new(Address).FromBase64(s)
}

type jsonAddress struct {
	Hex    string `json:"hex"`
	Base64 string `json:"base64"`
}

func (x *Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonAddress{Hex: x.String(), Base64: x.Base64()})
}

func (x *Address) UnmarshalJSON(raw []byte) error {
	var (
		a   *Address
		err error
	)

	var obj jsonAddress
	if json.Unmarshal(raw, &obj) == nil && obj.Hex != "" {
		a, err = Parse(obj.Hex)
	} else {
		a, err = Parse(strings.Trim(string(raw), `"`))
	}
	if err != nil {
		return errors.Wrapf(err, "cannot unmarshal %s to address", raw)
	}

	*x = *a
	return nil
}
