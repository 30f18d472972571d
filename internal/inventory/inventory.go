package inventory

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/melih-ucgun/certsync/internal/config"
	"github.com/melih-ucgun/certsync/internal/core"
)

// Inventory represents the structure of the inventory file.
type Inventory struct {
	Hosts []config.Host `yaml:"hosts"`
}

// LoadInventory reads and parses the inventory file.
func LoadInventory(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory file: %w", err)
	}

	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("failed to parse inventory file: %w", err)
	}

	for i := range inv.Hosts {
		config.ExpandHost(&inv.Hosts[i])
		inv.Hosts[i].ApplyDefaults()
	}
	if err := config.DecryptHosts(inv.Hosts); err != nil {
		return nil, err
	}
	return &inv, nil
}

// Merge appends inventory hosts to the configured ones. A host already
// defined in the config file wins.
func Merge(hosts []config.Host, inv *Inventory) []config.Host {
	if inv == nil {
		return hosts
	}
	known := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		known[h.Name] = true
	}
	merged := append([]config.Host(nil), hosts...)
	for _, h := range inv.Hosts {
		if !known[h.Name] {
			merged = append(merged, h)
			known[h.Name] = true
		}
	}
	return merged
}

// Select filters hosts by name and by a `when` expression evaluated
// against each host. An empty names list matches every host.
func Select(hosts []config.Host, names []string, when string) ([]config.Host, error) {
	filter := len(names) > 0
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	seen := make(map[string]bool, len(names))
	var selected []config.Host
	for _, h := range hosts {
		if filter && !wanted[h.Name] {
			continue
		}
		seen[h.Name] = true
		ok, err := core.EvaluateCondition(when, hostEnv(h))
		if err != nil {
			return nil, err
		}
		if ok {
			selected = append(selected, h)
		}
	}

	for _, n := range names {
		if !seen[n] {
			return nil, fmt.Errorf("unknown host: %s", n)
		}
	}
	return selected, nil
}

func hostEnv(h config.Host) map[string]any {
	vars := h.Vars
	if vars == nil {
		vars = map[string]string{}
	}
	return map[string]any{
		"Name":       h.Name,
		"Address":    h.Credentials().Host,
		"Port":       h.Port,
		"User":       h.User,
		"Connection": h.Connection,
		"Vars":       vars,
	}
}
