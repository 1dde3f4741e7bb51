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

package sio

import (
	"context"
	"encoding/json"
	"log"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/praekeltfoundation/vumigo/sandbox"
)

// WebSocketCouplings connects to a WebSocket server that sends
// commands (one per message) and receives replies (one per message).
type WebSocketCouplings struct {
	URL string

	in   chan *sandbox.Command
	out  chan *Result
	done chan bool
	conn *websocket.Conn

	// closing is closed by Stop, so that the writer can tell
	// Stop apart from a broken connection.
	closing chan bool
	wrote   chan bool
	wg      sync.WaitGroup
}

func NewWebSocketCouplings(u string) *WebSocketCouplings {
	return &WebSocketCouplings{
		URL: u,
	}
}

// Start creates the WebSocket session and starts processing it.
func (c *WebSocketCouplings) Start(ctx context.Context) error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return err
	}

	c.in = make(chan *sandbox.Command)
	c.out = make(chan *Result)
	c.done = make(chan bool)
	c.closing = make(chan bool)
	c.wrote = make(chan bool)

	log.Println("wsconnect", u.String())
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return err
	}
	c.conn = conn

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(c.done)
		for {
			_, bs, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-c.closing:
				default:
					log.Printf("WebSocketCouplings ReadMessage error %s", err)
				}
				return
			}
			if len(bs) == 0 {
				continue
			}
			cmd, err := ParseCommand(bs)
			if err != nil {
				log.Printf("WebSocketCouplings bad input %s: %s", err, bs)
				continue
			}
			select {
			case <-ctx.Done():
				return
			case <-c.closing:
				return
			case c.in <- cmd:
			}
		}
	}()

	go func() {
		defer close(c.wrote)
		for {
			select {
			case <-ctx.Done():
				return
			case <-c.closing:
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				conn.WriteMessage(websocket.CloseMessage, msg)
				return
			case r := <-c.out:
				if r == nil {
					return
				}
				if err := writeResult(conn, r); err != nil {
					log.Printf("WebSocketCouplings WriteMessage error %s", err)
					return
				}
			}
		}
	}()

	return nil
}

// writeResult sends each reply as its own message.  A Result with an
// error and no replies is sent as {"error": ...}.
func writeResult(conn *websocket.Conn, r *Result) error {
	if len(r.Replies) == 0 && r.Err != "" {
		return conn.WriteJSON(map[string]interface{}{"error": r.Err})
	}
	for _, reply := range r.Replies {
		js, err := json.Marshal(reply)
		if err != nil {
			return err
		}
		if err = conn.WriteMessage(websocket.TextMessage, js); err != nil {
			return err
		}
	}
	return nil
}

// IO just returns the channels that Start() initialized.
func (c *WebSocketCouplings) IO(ctx context.Context) (chan *sandbox.Command, chan *Result, chan bool, error) {
	return c.in, c.out, c.done, nil
}

// Stop terminates the WebSocket connection.
func (c *WebSocketCouplings) Stop(ctx context.Context) error {
	log.Printf("Disconnecting")
	if c.conn == nil {
		return nil
	}
	close(c.closing)
	<-c.wrote
	err := c.conn.Close()
	c.wg.Wait()
	return err
}
