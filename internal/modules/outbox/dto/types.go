package dto

import (
	"encoding/json"
	"time"
)

type EnqueueInput struct {
	Action string
	// Data is any JSON-encodable value; json.RawMessage is stored as is.
	Data any
}

type ItemOutput struct {
	ID        string          `json:"id" yaml:"id"`
	Action    string          `json:"action" yaml:"action"`
	Data      json.RawMessage `json:"data" yaml:"-"`
	Payload   string          `json:"-" yaml:"data"`
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
}

type DrainOutput struct {
	Ran       bool     `json:"ran" yaml:"ran"`
	Skipped   string   `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Attempted []string `json:"attempted" yaml:"attempted"`
	Delivered []string `json:"delivered" yaml:"delivered"`
	Failed    []string `json:"failed" yaml:"failed"`
	Remaining int      `json:"remaining" yaml:"remaining"`
}

type EnqueueOutput struct {
	Item  ItemOutput
	Drain DrainOutput
}

type NetworkOutput struct {
	Connected bool   `json:"connected" yaml:"connected"`
	Reachable string `json:"reachable" yaml:"reachable"`
	Transport string `json:"transport" yaml:"transport"`
}

type NetworkInput struct {
	Connected bool
	// Reachable is "yes", "no" or "unknown"/empty.
	Reachable string
	Transport string
}

type ListOutput struct {
	Items   []ItemOutput  `json:"items" yaml:"items"`
	Busy    bool          `json:"busy" yaml:"busy"`
	Network NetworkOutput `json:"network" yaml:"network"`
}
