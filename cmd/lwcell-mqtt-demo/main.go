// Command lwcell-mqtt-demo connects to a broker over transport/tcp,
// subscribes to a topic, and prints inbound publishes with color-coded
// event lines, the way the broker examples in the retrieval pack color
// their console log levels (SPEC_FULL.md §11). It is a demonstration
// harness for the transport adapters, not part of the core's tested surface.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	mqtt "github.com/jonny12375/lwcell"
	"github.com/jonny12375/lwcell/transport/tcp"
)

func main() {
	host := flag.String("host", "localhost", "broker host")
	port := flag.Uint("port", 1883, "broker port")
	clientID := flag.String("client-id", "lwcell-mqtt-demo", "MQTT client identifier")
	topic := flag.String("topic", "lwcell/demo", "topic to subscribe to")
	qos := flag.Uint("qos", 0, "subscription QoS (0, 1, or 2)")
	debug := flag.Bool("debug", false, "enable trace logging")
	flag.Parse()

	conn := tcp.New(500 * time.Millisecond)
	opts := []mqtt.ClientOption{}
	if *debug {
		opts = append(opts, mqtt.WithDebug(nil))
	}
	opts = append(opts, mqtt.WithEventHandler(handleEvent(*topic, mqtt.QoSLevel(*qos))))

	client, err := mqtt.NewClient(2048, 2048, conn, opts...)
	if err != nil {
		log.Fatal(err)
	}

	desc := &mqtt.SessionDescriptor{ClientID: *clientID, KeepAlive: 30, CleanSession: true}
	if err := client.Connect(*host, uint16(*port), desc); err != nil {
		log.Fatal(err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	_ = client.Disconnect()
}

func handleEvent(topic string, qos mqtt.QoSLevel) mqtt.EventHandler {
	return func(c *mqtt.Client, evt *mqtt.Event) {
		switch evt.Kind {
		case mqtt.EventConnect:
			if evt.Connect.Accepted() {
				fmt.Println(color.GreenString("CONNECT"), "accepted")
				// The handler runs under the client's lock; subscribe from
				// another goroutine once it has returned.
				go func() {
					if err := c.Subscribe(topic, qos, nil); err != nil {
						fmt.Println(color.RedString("SUBSCRIBE"), err)
					}
				}()
			} else {
				fmt.Println(color.RedString("CONNECT"), evt.Connect.Status)
			}
		case mqtt.EventDisconnect:
			fmt.Println(color.YellowString("DISCONNECT"), "accepted:", evt.Disconnect.Accepted)
		case mqtt.EventPublishRecv:
			fmt.Println(color.CyanString("PUBLISH_RECV"), string(evt.PublishRecv.Topic), "->", string(evt.PublishRecv.Payload))
		case mqtt.EventSubscribe:
			if evt.SubUnsub.Err != nil {
				fmt.Println(color.RedString("SUBACK"), evt.SubUnsub.Err)
			} else {
				fmt.Println(color.GreenString("SUBACK"), "ok")
			}
		case mqtt.EventPublish:
			if evt.Publish.Err != nil {
				fmt.Println(color.RedString("PUBLISH"), evt.Publish.Err)
			}
		case mqtt.EventUnsubscribe, mqtt.EventKeepAlive:
		}
	}
}
