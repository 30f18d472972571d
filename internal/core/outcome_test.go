package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcome_Fields(t *testing.T) {
	o := NewOutcome("smp")
	fields := o.Fields()
	assert.Equal(t, false, fields["failed"])
	assert.Equal(t, false, fields["changed"])
	assert.Equal(t, "", fields["msg"])
	assert.NotContains(t, fields, "remote_cert_exists")
	assert.NotContains(t, fields, "backup_path")

	o.SetRemoteExists(false)
	o.Warn("backup", "no backup")
	o.LocalCertPath = "ssl/cacert.pem"
	fields = o.Fields()
	assert.Equal(t, false, fields["remote_cert_exists"])
	assert.Equal(t, "no backup", fields["backup_warning"])
	assert.Equal(t, "ssl/cacert.pem", fields["local_cert_path"])
}

func TestOutcome_Abort(t *testing.T) {
	o := NewOutcome("smp")
	o.Changed = true
	o.Abort("boom")
	assert.True(t, o.Failed)
	assert.Equal(t, "boom", o.Msg)
}

func TestOutcome_MarshalJSON(t *testing.T) {
	o := NewOutcome("smp")
	o.SetRemoteExists(true)
	o.Msg = "ok"

	data, err := json.Marshal(o)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, true, decoded["remote_cert_exists"])
	assert.Equal(t, "ok", decoded["msg"])
	assert.Equal(t, "smp", decoded["host"])
}

func TestCredentials_Validate(t *testing.T) {
	valid := Credentials{Host: "smp", Port: 22022, Username: "admin", Password: "secret"}
	assert.NoError(t, valid.Validate())
	assert.Equal(t, "smp:22022", valid.Address())

	cases := map[string]func(c *Credentials){
		"host":     func(c *Credentials) { c.Host = "" },
		"port":     func(c *Credentials) { c.Port = 0 },
		"username": func(c *Credentials) { c.Username = "" },
		"password": func(c *Credentials) { c.Password = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			assert.ErrorIs(t, c.Validate(), ErrInvalidCredentials)
		})
	}
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("stat /certs/cacert.pem: %w", ErrNotFound)))
	assert.False(t, IsNotFound(errors.New("permission denied")))
}
