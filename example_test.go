package ledgerchat_test

import (
	"context"
	"fmt"

	"github.com/aretw0/ledgerchat"
)

func ExampleEngine_Handle() {
	eng := ledgerchat.New()
	ctx := context.Background()

	for _, msg := range []string{"offer", "25 USD", "carol", "yes"} {
		res, err := eng.Handle(ctx, "demo", msg)
		if err != nil {
			fmt.Println("error:", err)
			return
		}
		fmt.Println(res.Status, res.Step)
	}
	// Output:
	// prompt amount
	// advanced handle
	// advanced confirm
	// complete confirm
}
