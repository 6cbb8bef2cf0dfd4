package hooks

import (
	"math/rand/v2"

	"github.com/Shopify/go-lua"
)

func registerRandomLibrary(l *lua.State) {
	l.Global("showrunner")

	if l.IsNil(-1) {
		l.Pop(1)
		return
	}

	lua.NewLibrary(l, randomLibrary())

	l.SetField(-2, "random")

	l.Pop(1)
}

// randomLibrary exposes `showrunner.random` to hook scripts. Hooks draw
// random values for two things: RNG seeds and free-ish init-method ports, so
// the library stays small.
func randomLibrary() []lua.RegistryFunction {
	return []lua.RegistryFunction{
		// int returns a random integer in [min, max].
		//
		// @param min int The minimum value of the range.
		// @param max int The maximum value of the range.
		// @return int A random integer between min and max (inclusive).
		{Name: "int", Function: func(l *lua.State) int {
			min := lua.CheckInteger(l, 2)
			max := lua.CheckInteger(l, 3)

			if min > max {
				lua.ArgumentError(l, 2, "minimum value cannot be greater than max")
				return 0
			}
			l.PushInteger(min + rand.IntN(max-min+1))
			return 1
		}},
		// seed returns a positive 31-bit integer suitable for RNG_SEED.
		//
		// @return int The seed value.
		{Name: "seed", Function: func(l *lua.State) int {
			l.PushInteger(1 + rand.IntN(1<<31-1))
			return 1
		}},
	}
}
