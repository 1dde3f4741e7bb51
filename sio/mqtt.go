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
	"strconv"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/praekeltfoundation/vumigo/sandbox"
)

// MQTTCouplings reads commands from subscribed topics and publishes
// each reply to ReplyTopic + "/" + the user's address.
type MQTTCouplings struct {
	Client  mqtt.Client
	Quiesce uint

	// SubTopics is a comma-separated list of TOPIC or TOPIC:QOS.
	SubTopics string

	// ReplyTopic is the prefix for reply topics.  A ":QOS"
	// suffix sets the QoS.
	ReplyTopic string

	// InTimeout bounds how long an incoming command waits to be
	// taken.
	InTimeout time.Duration

	incoming chan *sandbox.Command
	outbound chan *Result
	done     chan bool
}

func NewMQTTCouplings(client mqtt.Client, subTopics, replyTopic string) *MQTTCouplings {
	return &MQTTCouplings{
		Client:     client,
		Quiesce:    100,
		SubTopics:  subTopics,
		ReplyTopic: replyTopic,
		InTimeout:  5 * time.Second,
		incoming:   make(chan *sandbox.Command),
		outbound:   make(chan *Result),
		done:       make(chan bool),
	}
}

func (c *MQTTCouplings) consume(ctx context.Context, topic string, payload []byte) {
	cmd, err := ParseCommand(payload)
	if err != nil {
		log.Printf("MQTTCouplings ignoring payload on %s (%s): %s", topic, err, payload)
		return
	}

	to := time.NewTimer(c.InTimeout)
	defer to.Stop()

	select {
	case <-ctx.Done():
		log.Printf("MQTTCouplings not forwarding due to ctx.Done()")
	case c.incoming <- cmd:
	case <-to.C:
		log.Printf("MQTTCouplings not forwarding due to stall ('%s','%s')", topic, payload)
	}
}

// Start creates the MQTT session and subscribes.
func (c *MQTTCouplings) Start(ctx context.Context) error {
	log.Printf("Attempting to connect to broker")
	if token := c.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("Connected to broker")

	handler := func(client mqtt.Client, msg mqtt.Message) {
		c.consume(ctx, msg.Topic(), msg.Payload())
	}

	for _, topic := range strings.Split(c.SubTopics, ",") {
		topic, qos := parseTopic(strings.TrimSpace(topic))
		if topic == "" {
			continue
		}
		log.Printf("Subscribing to %s (%d)", topic, qos)
		if t := c.Client.Subscribe(topic, qos, handler); t.Wait() && t.Error() != nil {
			return t.Error()
		}
	}

	go c.outLoop(ctx)

	return nil
}

// IO returns the channels made by NewMQTTCouplings.
func (c *MQTTCouplings) IO(ctx context.Context) (chan *sandbox.Command, chan *Result, chan bool, error) {
	return c.incoming, c.outbound, c.done, nil
}

// replyTopic gives the topic and QoS for a reply.
func (c *MQTTCouplings) replyTopic(r *sandbox.Reply) (string, byte) {
	prefix, qos := parseTopic(c.ReplyTopic)
	addr := r.ToAddr
	if addr == "" {
		addr = "unknown"
	}
	return prefix + "/" + addr, qos
}

// outLoop publishes replies.
func (c *MQTTCouplings) outLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case r := <-c.outbound:
			if r == nil {
				return
			}
			if r.Err != "" {
				log.Printf("MQTTCouplings result error: %s", r.Err)
			}
			for _, reply := range r.Replies {
				js, err := json.Marshal(reply)
				if err != nil {
					log.Printf("Failed to marshal %#v", reply)
					continue
				}
				topic, qos := c.replyTopic(reply)
				token := c.Client.Publish(topic, qos, false, js)
				token.Wait()
				if err := token.Error(); err != nil {
					log.Printf("Publish error: %s", err)
				}
			}
		}
	}
}

// Stop terminates the MQTT session.
func (c *MQTTCouplings) Stop(context.Context) error {
	log.Printf("Disconnecting")
	close(c.done)
	c.Client.Disconnect(c.Quiesce)
	return nil
}

// parseTopic can extract QoS from a topic name of the form TOPIC:QOS.
func parseTopic(s string) (string, byte) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return s, 0
	}
	n, err := strconv.Atoi(s[i+1:])
	if err != nil || n < 0 || 2 < n {
		return s, 0
	}
	return s[:i], byte(n)
}
