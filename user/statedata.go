/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package user

import "encoding/json"

// StateData describes a state without being one: the state's name,
// its metadata and the options to give its creator when the state is
// made again.
//
// An empty Name means "no current state".  It's serialized as null.
type StateData struct {
	Name        string
	Metadata    map[string]interface{}
	CreatorOpts map[string]interface{}
}

// NewStateData makes a StateData.  Nil maps become empty maps.
func NewStateData(name string, metadata, opts map[string]interface{}) StateData {
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	if opts == nil {
		opts = make(map[string]interface{})
	}
	return StateData{
		Name:        name,
		Metadata:    metadata,
		CreatorOpts: opts,
	}
}

// Reset replaces everything.
func (d *StateData) Reset(name string, metadata, opts map[string]interface{}) {
	*d = NewStateData(name, metadata, opts)
}

// Is reports whether the state has the given name.
func (d *StateData) Is(name string) bool {
	return d.Exists() && d.Name == name
}

// Exists reports whether there is a state at all.
func (d *StateData) Exists() bool {
	return d.Name != ""
}

// Copy makes a shallow copy of the maps.
func (d StateData) Copy() StateData {
	return NewStateData(d.Name, copyMap(d.Metadata), copyMap(d.CreatorOpts))
}

func copyMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	acc := make(map[string]interface{}, len(m))
	for k, v := range m {
		acc[k] = v
	}
	return acc
}

type stateDataJSON struct {
	Name        *string                `json:"name"`
	Metadata    map[string]interface{} `json:"metadata"`
	CreatorOpts map[string]interface{} `json:"creator_opts"`
}

func (d StateData) MarshalJSON() ([]byte, error) {
	x := stateDataJSON{
		Metadata:    d.Metadata,
		CreatorOpts: d.CreatorOpts,
	}
	if x.Metadata == nil {
		x.Metadata = map[string]interface{}{}
	}
	if x.CreatorOpts == nil {
		x.CreatorOpts = map[string]interface{}{}
	}
	if d.Name != "" {
		name := d.Name
		x.Name = &name
	}
	return json.Marshal(&x)
}

func (d *StateData) UnmarshalJSON(bs []byte) error {
	var x stateDataJSON
	if err := json.Unmarshal(bs, &x); err != nil {
		return err
	}
	var name string
	if x.Name != nil {
		name = *x.Name
	}
	*d = NewStateData(name, x.Metadata, x.CreatorOpts)
	return nil
}
