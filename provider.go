package nasc

import (
	"errors"
	"fmt"
	"reflect"
)

// ServiceProvider groups related registrations so startup code can install
// them as one module.
//
// Example:
//
//	type LoggingProvider struct{}
//
//	func (p *LoggingProvider) Register(c *nasc.Container) error {
//	    return c.RegisterSingleton(nasc.KeyOf((*Logger)(nil)), &ConsoleLogger{})
//	}
type ServiceProvider interface {
	Register(container *Container) error
}

// BootableProvider is an optional interface for providers that need a boot
// phase. Boot is called by BootProviders after all providers registered.
type BootableProvider interface {
	ServiceProvider
	Boot(container *Container) error
}

// DeferredProvider is an optional interface for providers that register
// only when a condition holds.
type DeferredProvider interface {
	ServiceProvider
	ShouldRegister(container *Container) bool
}

// providerEntry tracks a registered provider.
type providerEntry struct {
	provider ServiceProvider
	booted   bool
}

// RegisterProvider calls the provider's Register method and tracks it for
// BootProviders. A provider type is installed at most once; deferred
// providers whose condition is false are skipped.
//
// Example:
//
//	container.RegisterProvider(&LoggingProvider{})
//	container.RegisterProvider(&DatabaseProvider{})
//	container.BootProviders()
func (c *Container) RegisterProvider(provider ServiceProvider) error {
	if provider == nil {
		return errors.New("provider cannot be nil")
	}

	if deferred, ok := provider.(DeferredProvider); ok && !deferred.ShouldRegister(c) {
		return nil
	}

	providerType := reflect.TypeOf(provider)
	c.providersMu.Lock()
	for _, entry := range c.providers {
		if reflect.TypeOf(entry.provider) == providerType {
			c.providersMu.Unlock()
			return nil
		}
	}
	entry := &providerEntry{provider: provider}
	c.providers = append(c.providers, entry)
	c.providersMu.Unlock()

	// Register runs unlocked so providers may install other providers.
	if err := provider.Register(c); err != nil {
		c.removeProvider(entry)
		return fmt.Errorf("provider registration failed: %w", err)
	}

	return nil
}

func (c *Container) removeProvider(entry *providerEntry) {
	c.providersMu.Lock()
	defer c.providersMu.Unlock()

	for i, e := range c.providers {
		if e == entry {
			c.providers = append(c.providers[:i], c.providers[i+1:]...)
			return
		}
	}
}

// BootProviders calls Boot on every registered BootableProvider that has not
// booted yet, in registration order. When the container is configured with
// ValidateOnBoot, the dependency graph is validated first.
func (c *Container) BootProviders() error {
	if c.cfg.Container.ValidateOnBoot {
		if err := c.Validate(); err != nil {
			return err
		}
	}

	c.providersMu.Lock()
	entries := make([]*providerEntry, len(c.providers))
	copy(entries, c.providers)
	c.providersMu.Unlock()

	for _, entry := range entries {
		if entry.booted {
			continue
		}
		if bootable, ok := entry.provider.(BootableProvider); ok {
			if err := bootable.Boot(c); err != nil {
				return fmt.Errorf("provider boot failed: %w", err)
			}
		}
		entry.booted = true
	}

	return nil
}

// GetProviders returns the registered providers in registration order.
func (c *Container) GetProviders() []ServiceProvider {
	c.providersMu.Lock()
	defer c.providersMu.Unlock()

	providers := make([]ServiceProvider, len(c.providers))
	for i, entry := range c.providers {
		providers[i] = entry.provider
	}
	return providers
}
