package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/robotalks/ld2410.go/pkg/config"
	"github.com/robotalks/ld2410.go/pkg/mqtt"
	"github.com/robotalks/ld2410.go/pkg/msgs"
)

var (
	mqttURL = config.DefaultMQTTURL
	node    = "+"
)

func init() {
	if val := os.Getenv(config.EnvMQTT); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&node, "node", node, "Node to monitor, + for all.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	link, err := mqtt.NewLinkFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if err = link.Connect(); err != nil {
		log.Fatalln(err)
	}
	defer link.Close()

	link.Subscribe(mqtt.MetaTopic(node), func(topic string, payload []byte) {
		info, err := msgs.DecodeDeviceInfo(payload)
		if err != nil {
			log.Printf("%s: bad device info: %v", topic, err)
			return
		}
		log.Printf("%s: %s firmware %s mac %s engineering=%v\n%s", topic,
			info.Device, info.Firmware, info.MAC, info.Engineering,
			strings.TrimSpace(string(payload)))
	})
	link.Subscribe(mqtt.ReportTopic(node), func(topic string, payload []byte) {
		m, err := msgs.DecodeReport(payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		r, err := m.Decode()
		if err != nil {
			log.Printf("%s: %v", topic, err)
			return
		}
		nodeName, _, _ := mqtt.NodeOf(topic)
		log.Printf("%s [%s] %s moving=%d/%d stationary=%d/%d detection=%d latency=%s",
			nodeName, r.Type, r.State,
			r.Moving.Distance, r.Moving.Energy,
			r.Stationary.Distance, r.Stationary.Energy,
			r.DetectionDistance, time.Since(m.Time()).Round(time.Millisecond))
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	<-sigCh
}
