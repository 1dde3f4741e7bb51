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

package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praekeltfoundation/vumigo/states"
)

func TestDuplicateState(t *testing.T) {
	a := New("start")
	mk := func() states.State {
		return states.NewEnd("start", "bye", "")
	}
	require.NoError(t, a.States.AddState("start", mk))

	err := a.States.AddState("start", mk)
	require.Error(t, err)
	assert.Equal(t, "Duplicate state 'start'", err.Error())
	assert.True(t, errors.Is(err, ErrDuplicateState))

	var dup *DuplicateState
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "start", dup.Name)
}

func TestRegistry(t *testing.T) {
	a := New("b")
	for _, name := range []string{"b", "a"} {
		name := name
		require.NoError(t, a.States.AddState(name, func() states.State {
			return states.NewBaseState(name)
		}))
	}
	assert.Equal(t, []string{"a", "b"}, a.States.Names())
	assert.True(t, a.States.Has("a"))
	assert.False(t, a.States.Has("c"))

	c, have := a.States.Creator("a")
	require.True(t, have)
	s, err := c(context.Background(), "a", nil)
	require.NoError(t, err)
	assert.Equal(t, "a", s.Name())
}

func TestErrorCreator(t *testing.T) {
	a := New("start")
	s, err := a.States.ErrorCreator()(context.Background(), ErrorStateName, nil)
	require.NoError(t, err)
	end, is := s.(*states.End)
	require.True(t, is)
	assert.Equal(t, ErrorStateName, end.Name())
	assert.Equal(t, "start", end.Next)
	assert.Equal(t, states.ErrorText, string(end.Text))
}

func TestSetup(t *testing.T) {
	a := New("start")
	require.NoError(t, a.Setup(context.Background(), nil))

	called := false
	a.Init = func(ctx context.Context, im states.Machine) error {
		called = true
		return nil
	}
	require.NoError(t, a.Setup(context.Background(), nil))
	assert.True(t, called)
}
