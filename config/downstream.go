package config

import (
	"fmt"
	"maps"
	"slices"

	"github.com/kbukum/apikit/downstream"
	"github.com/kbukum/apikit/httpclient"
	"github.com/kbukum/apikit/validation"
)

// DownstreamConfig names the downstream APIs and the HTTP clients used to
// reach them. A client is matched to an API by name; APIs without a client
// of their own use httpclient.DefaultName.
type DownstreamConfig struct {
	APIs    map[string]downstream.Options `yaml:"apis" mapstructure:"apis" validate:"dive"`
	Clients map[string]httpclient.Config  `yaml:"clients" mapstructure:"clients"`
}

// ApplyDefaults fills client defaults.
func (c *DownstreamConfig) ApplyDefaults() {
	for name, cc := range c.Clients {
		cc.ApplyDefaults()
		c.Clients[name] = cc
	}
}

// Validate checks every API and client. All failures are reported together.
func (c *DownstreamConfig) Validate() error {
	v := validation.New()
	v.Merge("", validation.Validate(c))
	for _, name := range slices.Sorted(maps.Keys(c.APIs)) {
		v.Required("apis."+name+".base_url", c.APIs[name].BaseURL)
	}
	for _, name := range slices.Sorted(maps.Keys(c.Clients)) {
		cc := c.Clients[name]
		if err := cc.Validate(); err != nil {
			v.AddError("clients."+name, err.Error())
		}
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("config.downstream: %w", err)
	}
	return nil
}

// OptionsMap returns a copy of the API options keyed by name.
func (c *DownstreamConfig) OptionsMap() map[string]*downstream.Options {
	out := make(map[string]*downstream.Options, len(c.APIs))
	for name, o := range c.APIs {
		out[name] = o.Clone()
	}
	return out
}

// NewStore returns an options store seeded with the configured APIs.
func (c *DownstreamConfig) NewStore() *downstream.OptionsStore {
	return downstream.NewOptionsStore(c.OptionsMap())
}

// NewFactory builds the configured HTTP clients.
func (c *DownstreamConfig) NewFactory(opts ...httpclient.FactoryOption) (*httpclient.Factory, error) {
	return httpclient.NewFactory(c.Clients, opts...)
}
