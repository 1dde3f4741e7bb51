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
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/praekeltfoundation/vumigo/sandbox"
)

// HTTPDCouplings is a Couplings based on an HTTP service.
//
// POST /messages processes a command (or bare message) synchronously
// and responds with the Result.  With "?async=true", the command is
// queued for the Host's Loop instead, and the response is 202.
//
// GET /ws upgrades to a WebSocket.  Each message is a command, and
// each reply comes back as a message.
type HTTPDCouplings struct {
	Addr string

	// Host processes synchronous requests.
	Host *Host

	in     chan *sandbox.Command
	out    chan *Result
	done   chan bool
	server *http.Server
}

func NewHTTPDCouplings(addr string, h *Host) *HTTPDCouplings {
	return &HTTPDCouplings{
		Addr: addr,
		Host: h,
		in:   make(chan *sandbox.Command),
		out:  make(chan *Result),
		done: make(chan bool),
	}
}

// MaxCommandBytes bounds the size of a POSTed command.
const MaxCommandBytes = 1 << 20

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func puntf(w http.ResponseWriter, status int, format string, args ...interface{}) {
	s := fmt.Sprintf(format, args...)
	log.Println(s)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	js, err := json.Marshal(map[string]interface{}{"error": s})
	if err != nil {
		js = []byte(s)
	}
	fmt.Fprintf(w, "%s\n", js)
}

// Router returns the service's handler.
func (c *HTTPDCouplings) Router(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "\"pong\"\n")
	})

	r.Post("/messages", func(w http.ResponseWriter, r *http.Request) {
		js, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxCommandBytes))
		if err != nil {
			status := http.StatusBadRequest
			var tooBig *http.MaxBytesError
			if errors.As(err, &tooBig) {
				status = http.StatusRequestEntityTooLarge
			}
			puntf(w, status, "ReadAll error %v", err)
			return
		}
		cmd, err := ParseCommand(js)
		if err != nil {
			puntf(w, http.StatusBadRequest, "bad command: %v", err)
			return
		}

		if r.FormValue("async") == "true" {
			select {
			case <-r.Context().Done():
				puntf(w, http.StatusServiceUnavailable, "not queued")
			case c.in <- cmd:
				w.WriteHeader(http.StatusAccepted)
				fmt.Fprintf(w, "{}\n")
			}
			return
		}

		res, err := c.Host.ProcessCommand(r.Context(), cmd)
		if err != nil {
			puntf(w, http.StatusInternalServerError, "ProcessCommand error %v", err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(res); err != nil {
			log.Printf("HTTPDCouplings Encode error %v", err)
		}
	})

	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("HTTPDCouplings upgrade error %v", err)
			return
		}
		defer conn.Close()
		for {
			_, bs, err := conn.ReadMessage()
			if err != nil {
				return
			}
			cmd, err := ParseCommand(bs)
			if err != nil {
				conn.WriteJSON(map[string]interface{}{"error": err.Error()})
				continue
			}
			res, err := c.Host.ProcessCommand(ctx, cmd)
			if err != nil {
				res = &Result{Err: err.Error()}
			}
			if err := writeResult(conn, res); err != nil {
				return
			}
		}
	})

	return r
}

// Start starts the HTTP service.
func (c *HTTPDCouplings) Start(ctx context.Context) error {
	if c.Host == nil {
		return fmt.Errorf("HTTPDCouplings needs a Host")
	}

	c.server = &http.Server{
		Addr:           c.Addr,
		Handler:        c.Router(ctx),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		log.Printf("Starting HTTP service on %s", c.Addr)
		if err := c.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("ListenAndServe error %v", err)
			close(c.done)
		}
	}()

	// Results of queued commands have nowhere to go but the log.
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case r := <-c.out:
				if r == nil {
					return
				}
				if r.Err != "" {
					log.Printf("HTTPDCouplings queued command error: %s", r.Err)
				}
				for _, reply := range r.Replies {
					log.Printf("HTTPDCouplings queued reply %s", JS(reply))
				}
			}
		}
	}()

	return nil
}

// IO returns the channels for queued commands.
func (c *HTTPDCouplings) IO(ctx context.Context) (chan *sandbox.Command, chan *Result, chan bool, error) {
	return c.in, c.out, c.done, nil
}

// Stop shuts down the HTTP service.
func (c *HTTPDCouplings) Stop(ctx context.Context) error {
	if c.server == nil {
		return nil
	}
	return c.server.Shutdown(ctx)
}
