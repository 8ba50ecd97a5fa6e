package mqtt_test

import (
	"fmt"
	"time"

	mqtt "github.com/jonny12375/lwcell"
	"github.com/jonny12375/lwcell/transport/tcp"
)

// ExampleClient demonstrates wiring a Client to a real transport/tcp
// adapter. Dialing a broker that is not running fails synchronously here,
// matching this core's ancestor's own loopback example.
func ExampleClient() {
	conn := tcp.New(500 * time.Millisecond)
	client, err := mqtt.NewClient(1024, 1024, conn, mqtt.WithEventHandler(func(_ *mqtt.Client, evt *mqtt.Event) {
		if evt.Kind == mqtt.EventConnect {
			fmt.Println("connect status:", evt.Connect.Status)
		}
	}))
	if err != nil {
		fmt.Println(err)
		return
	}

	desc := &mqtt.SessionDescriptor{ClientID: "salamanca", KeepAlive: 30}
	err = client.Connect("127.0.0.1", 1883, desc)
	if err != nil {
		fmt.Println(err)
	}
	// Output:
	// mqtt: Connect: tcp: Open: dial tcp 127.0.0.1:1883: connect: connection refused
}
