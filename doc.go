// Package vumigo provides an interaction machine for USSD and SMS
// conversational apps.
//
// The machine is in package 'interaction', states are in 'states',
// and apps can be declared in YAML or JSON with 'appdef'.  Package
// 'sio' hosts a machine behind stdio, WebSockets, MQTT, or HTTP.  Some
// command-line tools are in `cmd`.
package vumigo
