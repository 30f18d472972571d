package core

import (
	"encoding/json"
	"sort"
)

// Outcome accumulates the result of one reconciliation. Once Failed is set
// the workflow does not touch the remote side again.
type Outcome struct {
	Host                 string
	Failed               bool
	Changed              bool
	Msg                  string
	Notice               string
	CertificateUpdateMsg string
	LocalCertPath        string
	RemoteCertExists     *bool
	BackupPath           string
	Fingerprint          string

	// Warnings are rendered as "<key>_warning".
	Warnings map[string]string
}

// NewOutcome returns an empty, non-failed outcome for host.
func NewOutcome(host string) *Outcome {
	return &Outcome{Host: host, Warnings: make(map[string]string)}
}

// Abort marks the outcome failed with msg.
func (o *Outcome) Abort(msg string) *Outcome {
	o.Failed = true
	o.Msg = msg
	return o
}

// Warn records an advisory that does not fail the run.
func (o *Outcome) Warn(key, msg string) {
	if o.Warnings == nil {
		o.Warnings = make(map[string]string)
	}
	o.Warnings[key] = msg
}

// SetRemoteExists records the probe result.
func (o *Outcome) SetRemoteExists(exists bool) {
	o.RemoteCertExists = &exists
}

// RemoteExists reports the recorded probe result, false when not probed.
func (o *Outcome) RemoteExists() bool {
	return o.RemoteCertExists != nil && *o.RemoteCertExists
}

// Fields renders the outcome as a flat mapping. failed, changed and msg are
// always present; the rest only once they are populated.
func (o *Outcome) Fields() map[string]any {
	fields := map[string]any{
		"failed":  o.Failed,
		"changed": o.Changed,
		"msg":     o.Msg,
	}
	optional := map[string]string{
		"host":                   o.Host,
		"notice":                 o.Notice,
		"certificate_update_msg": o.CertificateUpdateMsg,
		"local_cert_path":        o.LocalCertPath,
		"backup_path":            o.BackupPath,
		"fingerprint":            o.Fingerprint,
	}
	for k, v := range optional {
		if v != "" {
			fields[k] = v
		}
	}
	if o.RemoteCertExists != nil {
		fields["remote_cert_exists"] = *o.RemoteCertExists
	}
	for k, v := range o.Warnings {
		fields[k+"_warning"] = v
	}
	return fields
}

// WarningKeys returns the warning keys in stable order.
func (o *Outcome) WarningKeys() []string {
	keys := make([]string, 0, len(o.Warnings))
	for k := range o.Warnings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (o *Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.Fields())
}

func (o *Outcome) MarshalYAML() (any, error) {
	return o.Fields(), nil
}
