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


// Package main runs an app as an interaction machine host coupled to
// stdio, a WebSocket server, an MQTT broker, or its own HTTP service.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	flag "github.com/spf13/pflag"

	"github.com/praekeltfoundation/vumigo/app"
	"github.com/praekeltfoundation/vumigo/sio"
	"github.com/praekeltfoundation/vumigo/tools"
)

func main() {

	var (
		coupling = flag.String("io", "std", `IO protocol: "std", "ws", "mq", or "http"`)
		appFile  = flag.String("app", "", "App definition (YAML or JSON)")
		confFile = flag.String("conf", "", "Optional host conf (YAML)")
		store    = flag.String("store", "", `Optional store: "memory", "json", "bolt", or "sqlite"`)
		storeAt  = flag.String("store-path", "", "Optional store filename")

		shellExpand = flag.Bool("sh", false, "Enable <<shell>> expansion of input lines (std)")
		tags        = flag.Bool("tags", false, "Tag output lines (std)")
		echo        = flag.Bool("echo", false, "Echo input lines (std)")
		printLogs   = flag.Bool("logs", false, "Print app logs with replies (std)")

		wsURL = flag.String("url", "ws://localhost:8080/", "WebSocket server (ws)")
		addr  = flag.String("addr", ":8080", "Service address (http)")

		broker    = flag.String("broker", "tcp://localhost:1883", "MQTT broker (mq)")
		clientID  = flag.String("client-id", "vumigo", "MQTT client id (mq)")
		userName  = flag.String("user", "", "MQTT username (mq)")
		password  = flag.String("password", "", "MQTT password (mq)")
		keepAlive = flag.Duration("keep-alive", 10*time.Second, "MQTT keep-alive (mq)")
		subTopics = flag.String("sub", "vumigo/in", "MQTT subscription topic(s), comma-separated TOPIC[:QOS] (mq)")
		replyTo   = flag.String("reply", "vumigo/out", "MQTT reply topic prefix, TOPIC[:QOS] (mq)")

		wait    = flag.Duration("wait", time.Second, "Wait this long after input EOF before shutting down")
		verbose = flag.BoolP("verbose", "v", false, "Verbose")
	)

	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conf, err := sio.ReadHostConf(*confFile)
	if err != nil {
		log.Fatal(err)
	}
	if *appFile != "" {
		conf.App = *appFile
	}
	if *store != "" {
		conf.Store = *store
	}
	if *storeAt != "" {
		conf.StorePath = *storeAt
	}
	if *verbose {
		conf.Verbose = true
	}
	if conf.App == "" {
		fmt.Fprintf(os.Stderr, "usage: vumigo --app FILE [flags]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	d, err := tools.ReadApp(ctx, conf.App)
	if err != nil {
		log.Fatal(err)
	}

	s, err := conf.OpenStore(ctx)
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := s.Close(context.Background()); err != nil {
			log.Printf("error from store Close: %v", err)
		}
	}()

	h, err := sio.NewHost(conf, s, func(ctx context.Context) (*app.App, error) {
		return d.App()
	})
	if err != nil {
		log.Fatal(err)
	}

	var cio sio.Couplings
	switch *coupling {
	case "std":
		c := sio.NewStdio(*shellExpand)
		c.Tags = *tags
		c.EchoInput = *echo
		c.PrintLogs = *printLogs
		go func() {
			<-c.InputEOF
			log.Printf("input EOF (waiting %v)", *wait)
			time.Sleep(*wait)
			cancel()
		}()
		cio = c
	case "ws":
		cio = sio.NewWebSocketCouplings(*wsURL)
	case "mq", "mqtt":
		opts := mqtt.NewClientOptions()
		opts.AddBroker(*broker)
		opts.SetClientID(*clientID)
		opts.SetKeepAlive(*keepAlive)
		opts.Username = *userName
		opts.Password = *password
		opts.OnConnectionLost = func(client mqtt.Client, err error) {
			log.Printf("MQTT connection lost: %v", err)
		}
		cio = sio.NewMQTTCouplings(mqtt.NewClient(opts), *subTopics, *replyTo)
	case "http", "httpd":
		cio = sio.NewHTTPDCouplings(*addr, h)
	default:
		log.Fatalf("unknown io: '%s'", *coupling)
	}

	if err := cio.Start(ctx); err != nil {
		log.Fatal(err)
	}

	if err := h.Loop(ctx, cio); err != nil {
		log.Printf("error from Loop: %v", err)
	}

	if err = cio.Stop(context.Background()); err != nil {
		log.Printf("error from io.Stop: %v", err)
	}
}
