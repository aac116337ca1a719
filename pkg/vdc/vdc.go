// Package vdc is an opaque stand-in for the system's video controller:
// spec §1/§4.8 explicitly excludes pixel-generation internals, so this is
// a minimal bus.Device shell that accepts register I/O without
// interpreting it, never interrupts, and never blocks a tick.
package vdc

import "github.com/possum-systems/possum/pkg/bus"

// Controller is an opaque video device: register reads/writes are stored
// verbatim in an 8-port scratch file but not otherwise interpreted.
type Controller struct {
	regs [8]byte
}

func New() *Controller { return &Controller{} }

func (c *Controller) Tick(b bus.DeviceBus) {}

func (c *Controller) Read(port uint16) byte { return c.regs[port&0x07] }

func (c *Controller) Write(port uint16, data byte) { c.regs[port&0x07] = data }

func (c *Controller) Interrupting() bool     { return false }
func (c *Controller) InterruptVector() byte  { return 0xFF }
func (c *Controller) AckInterrupt()          {}
