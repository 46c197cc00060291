package mrf24j40

import (
	"errors"
	"testing"
)

func TestSetChannel(t *testing.T) {
	var id Identity
	for c := Channel(0); c < 40; c++ {
		before := id.Channel
		err := id.SetChannel(c)
		valid := c >= 11 && c <= 26
		switch {
		case valid && err != nil:
			t.Errorf("SetChannel(%d) = %v", c, err)
		case valid && id.Channel != c:
			t.Errorf("SetChannel(%d) stored %d", c, id.Channel)
		case !valid && !errors.Is(err, ErrInvalidValue):
			t.Errorf("SetChannel(%d) = %v, want %v", c, err, ErrInvalidValue)
		case !valid && id.Channel != before:
			t.Errorf("rejected SetChannel(%d) changed channel %d to %d", c, before, id.Channel)
		}
	}
}

func TestSetPANIDAndAddress(t *testing.T) {
	var id Identity
	for _, v := range []uint16{0, 1, 0x1234, 0x9999, 0xfffe} {
		if err := id.SetPANID(v); err != nil || id.PANID != v {
			t.Errorf("SetPANID(%#x) = %v, stored %#x", v, err, id.PANID)
		}
		if err := id.SetAddress(v); err != nil || id.Address != v {
			t.Errorf("SetAddress(%#x) = %v, stored %#x", v, err, id.Address)
		}
	}
	if err := id.SetPANID(Broadcast); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("SetPANID(broadcast) = %v, want %v", err, ErrInvalidValue)
	}
	if err := id.SetAddress(Broadcast); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("SetAddress(broadcast) = %v, want %v", err, ErrInvalidValue)
	}
	if id.PANID == Broadcast || id.Address == Broadcast {
		t.Error("broadcast value stored")
	}
}

func TestSetMACAndKey(t *testing.T) {
	var id Identity
	if err := id.SetMAC([MACSize]byte{}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("SetMAC(zero) = %v, want %v", err, ErrInvalidValue)
	}
	if err := id.SetSecurityKey([KeySize]byte{}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("SetSecurityKey(zero) = %v, want %v", err, ErrInvalidValue)
	}
	for i := range MACSize {
		var mac [MACSize]byte
		mac[i] = 0x01
		if err := id.SetMAC(mac); err != nil || id.MAC != mac {
			t.Errorf("SetMAC(%x) = %v, stored %x", mac, err, id.MAC)
		}
	}
	for i := range KeySize {
		var key [KeySize]byte
		key[i] = 0x80
		if err := id.SetSecurityKey(key); err != nil || id.SecurityKey != key {
			t.Errorf("SetSecurityKey(%x) = %v, stored %x", key, err, id.SecurityKey)
		}
	}
}

func TestLoadDefaultsOnce(t *testing.T) {
	var id Identity
	id.loadDefaults()
	want := Identity{
		MAC:         defaultMAC,
		SecurityKey: defaultKey,
		PANID:       0x9999,
		Address:     0xfffe,
		Sequence:    1,
		Channel:     Channel11,
	}
	if id != want {
		t.Errorf("defaults %+v, want %+v", id, want)
	}

	// A configured identity is left alone.
	if err := id.SetChannel(20); err != nil {
		t.Fatal(err)
	}
	id.SetSequence(42)
	id.loadDefaults()
	if id.Channel != 20 || id.Sequence != 42 {
		t.Errorf("defaults overwrote configuration: %+v", id)
	}
}

func TestSetterBeforeDefaults(t *testing.T) {
	// A value set before any defaults are loaded survives the
	// later load.
	var id Identity
	if err := id.SetPANID(0x1234); err != nil {
		t.Fatal(err)
	}
	id.loadDefaults()
	if id.PANID != 0x1234 {
		t.Errorf("PAN id %#x, want 0x1234", id.PANID)
	}
	if id.Channel != Channel11 {
		t.Errorf("channel %d, want default 11", id.Channel)
	}
}

func TestChannelRegister(t *testing.T) {
	tests := []struct {
		c    Channel
		want byte
	}{
		{11, 0x03},
		{12, 0x13},
		{20, 0x93},
		{26, 0xf3},
	}
	for _, test := range tests {
		if got := test.c.rfcon0(); got != test.want {
			t.Errorf("channel %d RFCON0 %#x, want %#x", test.c, got, test.want)
		}
	}
}
