/*
Package simulation drives a market-making strategy against an order book.

Each round the strategy quotes a bid and an ask, one random order is
injected on either side of the reference price, the book is matched and the
resulting fills are fed back to the strategy. Rounds are recorded (CSV by
default) and summarised in a Report.

The random stimulus is seeded so a run can be reproduced.
*/
package simulation
